package models

type SportSkills struct {
	Sport  string   `json:"sport"`
	Skills []string `json:"skills"`
}

// AthleteSummary is one child listed on a parent profile.
type AthleteSummary struct {
	Name   string   `json:"name"`
	Age    string   `json:"age"`
	Level  string   `json:"level"`
	Sports []string `json:"sports"`
}

// ResolvedProfile is a role profile after normalization. List fields are
// never null.
type ResolvedProfile struct {
	ID             string           `json:"id"`
	Role           Role             `json:"role"`
	DisplayName    string           `json:"display_name"`
	Title          string           `json:"title"`
	Subtitle       string           `json:"subtitle"`
	Location       string           `json:"location"`
	Bio            string           `json:"bio"`
	Sports         []string         `json:"sports"`
	Skills         []string         `json:"skills"`
	SkillsBySport  []SportSkills    `json:"skills_by_sport"`
	AgeGroups      []string         `json:"age_groups"`
	Certifications []string         `json:"certifications"`
	Experience     string           `json:"experience,omitempty"`
	Athletes       []AthleteSummary `json:"athletes,omitempty"`
	TeamType       string           `json:"team_type,omitempty"`
	Level          string           `json:"level,omitempty"`
	BusinessType   string           `json:"business_type,omitempty"`
	Website        string           `json:"website,omitempty"`
	Description    string           `json:"description,omitempty"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
