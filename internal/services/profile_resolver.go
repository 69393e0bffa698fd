package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/huddle-app/huddle-backend/internal/models"
)

// Sub-profile fields that carry a name when the top-level fields are empty.
var profileNameFields = map[models.Role]string{
	models.RoleAthlete:  "name",
	models.RoleParent:   "name",
	models.RoleCoach:    "name",
	models.RoleTeam:     "teamName",
	models.RoleLeague:   "leagueName",
	models.RoleMerchant: "businessName",
}

// ResolveDisplayName never returns "".
func ResolveDisplayName(record *models.Document, role models.Role) string {
	if name := scalarString(record.Value("name")); name != "" {
		return name
	}

	fullName := strings.TrimSpace(scalarString(record.Value("firstName")) + " " + scalarString(record.Value("lastName")))
	if fullName != "" {
		return fullName
	}

	if field, ok := profileNameFields[role]; ok {
		if name := scalarString(record.Object(role.ProfileKey()).Value(field)); name != "" {
			return name
		}
		// Leagues were also written without a sub-document.
		if name := scalarString(record.Value(field)); name != "" {
			return name
		}
	}

	return role.Label()
}

// NormalizeList coerces a list-ish value of any stored shape to a list of
// strings. It never returns nil.
func NormalizeList(value any) []string {
	switch typed := value.(type) {
	case nil:
		return []string{}
	case string:
		return splitCommaList(typed)
	case []string:
		items := make([]string, len(typed))
		copy(items, typed)
		return items
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if text, ok := elementString(item); ok {
				items = append(items, text)
			}
		}
		return items
	default:
		if text, ok := stringify(typed); ok {
			return []string{text}
		}
		return []string{}
	}
}

// NormalizeSkills flattens skills stored either as a list or as a map of
// sport to list-or-string. Map values are taken in key order.
func NormalizeSkills(value any) []string {
	switch value.(type) {
	case *models.Document, map[string]any:
		skills := make([]string, 0)
		for _, group := range SkillsBySport(value) {
			skills = append(skills, group.Skills...)
		}
		return skills
	default:
		return NormalizeList(value)
	}
}

// SkillsBySport keeps the per-sport grouping of a skills map. Flat lists have
// no grouping and yield an empty result.
func SkillsBySport(value any) []models.SportSkills {
	groups := make([]models.SportSkills, 0)

	switch typed := value.(type) {
	case *models.Document:
		for _, sport := range typed.Keys() {
			groups = append(groups, models.SportSkills{
				Sport:  sport,
				Skills: NormalizeList(typed.Value(sport)),
			})
		}
	case map[string]any:
		sports := make([]string, 0, len(typed))
		for sport := range typed {
			sports = append(sports, sport)
		}
		sort.Strings(sports)
		for _, sport := range sports {
			groups = append(groups, models.SportSkills{
				Sport:  sport,
				Skills: NormalizeList(typed[sport]),
			})
		}
	}

	return groups
}

// ResolveProfile builds the normalized view of a user record. When the role
// sub-document is missing the record's own fields are read instead.
func ResolveProfile(id string, record *models.Document, role models.Role) models.ResolvedProfile {
	profile := record.Object(role.ProfileKey())
	if profile == nil {
		profile = record
	}

	name := ResolveDisplayName(record, role)
	sports := NormalizeList(profile.Value("sports"))
	if len(sports) == 0 {
		sports = NormalizeList(profile.Value("sport"))
	}

	resolved := models.ResolvedProfile{
		ID:             id,
		Role:           role,
		DisplayName:    name,
		Title:          name,
		Subtitle:       strings.Join(sports, ", "),
		Location:       scalarString(profile.Value("location")),
		Bio:            scalarString(profile.Value("bio")),
		Sports:         sports,
		Skills:         NormalizeSkills(profile.Value("skills")),
		SkillsBySport:  SkillsBySport(profile.Value("skills")),
		AgeGroups:      NormalizeList(profile.Value("ageGroups")),
		Certifications: NormalizeList(profile.Value("certifications")),
		Experience:     scalarString(profile.Value("experience")),
		TeamType:       scalarString(profile.Value("teamType")),
		Level:          scalarString(profile.Value("level")),
		BusinessType:   scalarString(profile.Value("businessType")),
		Website:        scalarString(profile.Value("website")),
		Description:    scalarString(profile.Value("description")),
	}

	switch role {
	case models.RoleParent:
		resolved.Athletes = resolveAthletes(profile.Value("athletes"))
		resolved.Title = fmt.Sprintf("%s (Parent)", name)
		resolved.Subtitle = fmt.Sprintf("Parent of %d athlete(s)", len(resolved.Athletes))
	case models.RoleMerchant:
		if resolved.BusinessType != "" {
			resolved.Subtitle = resolved.BusinessType
		}
	}

	return resolved
}

func resolveAthletes(value any) []models.AthleteSummary {
	athletes := make([]models.AthleteSummary, 0)
	items, ok := value.([]any)
	if !ok {
		return athletes
	}

	for _, item := range items {
		athlete, ok := item.(*models.Document)
		if !ok {
			continue
		}
		athletes = append(athletes, models.AthleteSummary{
			Name:   scalarString(athlete.Value("name")),
			Age:    scalarString(athlete.Value("age")),
			Level:  scalarString(athlete.Value("competitiveLevel")),
			Sports: NormalizeList(athlete.Value("sports")),
		})
	}
	return athletes
}

// elementString stringifies a list element. Nested objects and lists become
// their JSON text; null has no text and is skipped.
func elementString(item any) (string, bool) {
	if text, ok := stringify(item); ok {
		return text, true
	}
	if item == nil {
		return "", false
	}
	encoded, err := json.Marshal(item)
	if err != nil {
		return "", false
	}
	return string(encoded), true
}

func splitCommaList(value string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}

// scalarString is the trimmed text of a scalar; objects and lists give "".
func scalarString(value any) string {
	text, ok := stringify(value)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

func stringify(value any) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return "", false
	case string:
		return typed, true
	case json.Number:
		return typed.String(), true
	case bool:
		return strconv.FormatBool(typed), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case int:
		return strconv.Itoa(typed), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case *models.Document, map[string]any, []any, []string:
		return "", false
	default:
		return fmt.Sprint(typed), true
	}
}
