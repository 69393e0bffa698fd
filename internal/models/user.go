package models

import (
	"strings"
	"time"
)

const UsersCollection = "users"

type Role string

const (
	RoleAthlete  Role = "athlete"
	RoleParent   Role = "parent"
	RoleCoach    Role = "coach"
	RoleTeam     Role = "team"
	RoleLeague   Role = "league"
	RoleMerchant Role = "merchant"
)

var roleCollections = map[Role]string{
	RoleAthlete:  "athletes",
	RoleParent:   "parents",
	RoleCoach:    "coaches",
	RoleTeam:     "teams",
	RoleLeague:   "leagues",
	RoleMerchant: "merchants",
}

var roleLabels = map[Role]string{
	RoleAthlete:  "Athlete",
	RoleParent:   "Parent",
	RoleCoach:    "Coach",
	RoleTeam:     "Team",
	RoleLeague:   "League",
	RoleMerchant: "Merchant",
}

// ParseRole normalizes a role tag. Unknown tags return ok=false.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleCollections[role]; !ok {
		return "", false
	}
	return role, true
}

func (r Role) Valid() bool {
	_, ok := roleCollections[r]
	return ok
}

// ProfileKey is the name of the role sub-document on a user record.
func (r Role) ProfileKey() string {
	if !r.Valid() {
		return ""
	}
	return string(r) + "Profile"
}

// Collection is the role-specific collection mirroring the users collection.
func (r Role) Collection() string {
	return roleCollections[r]
}

// Label is the display name used when a record carries no usable name.
func (r Role) Label() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return "User"
}

// Record is one document of a named collection.
type Record struct {
	Collection string    `json:"-"`
	ID         string    `json:"id"`
	Data       *Document `json:"data"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Role reads the record's role tag; unknown tags yield "".
func (r *Record) Role() Role {
	if r == nil {
		return ""
	}
	value, _ := r.Data.Value("role").(string)
	role, _ := ParseRole(value)
	return role
}

// Credential is the identity provider's login record for a user.
type Credential struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
