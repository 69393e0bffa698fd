package services

import (
	"context"
	"strings"

	"github.com/huddle-app/huddle-backend/internal/models"
)

type CollectionLister interface {
	List(ctx context.Context, collection string) ([]models.Record, error)
}

// DirectoryFilter selects directory entries. Each non-empty list matches when
// the entry has at least one of the selected values.
type DirectoryFilter struct {
	Sports    []string
	Skills    []string
	AgeGroups []string
	TeamTypes []string
	Page      int
	Limit     int
}

type DirectoryService struct {
	records CollectionLister
}

func NewDirectoryService(records CollectionLister) *DirectoryService {
	return &DirectoryService{records: records}
}

func (s *DirectoryService) ListCoaches(ctx context.Context, filter DirectoryFilter) ([]models.ResolvedProfile, int, error) {
	return s.list(ctx, models.RoleCoach, filter, true, func(profile models.ResolvedProfile) bool {
		return matchesAny(filter.Sports, profile.Sports) &&
			matchesAny(filter.Skills, profile.Skills) &&
			matchesAny(filter.AgeGroups, profile.AgeGroups)
	})
}

func (s *DirectoryService) ListTeams(ctx context.Context, filter DirectoryFilter) ([]models.ResolvedProfile, int, error) {
	return s.list(ctx, models.RoleTeam, filter, true, func(profile models.ResolvedProfile) bool {
		return matchesAny(filter.Sports, profile.Sports) &&
			matchesAny(filter.AgeGroups, profile.AgeGroups) &&
			matchesAny(filter.TeamTypes, []string{profile.TeamType})
	})
}

// ListLeagues accepts leagues stored with or without a leagueProfile.
func (s *DirectoryService) ListLeagues(ctx context.Context, filter DirectoryFilter) ([]models.ResolvedProfile, int, error) {
	return s.list(ctx, models.RoleLeague, filter, false, func(profile models.ResolvedProfile) bool {
		return matchesAny(filter.Sports, profile.Sports)
	})
}

func (s *DirectoryService) list(
	ctx context.Context,
	role models.Role,
	filter DirectoryFilter,
	requireProfile bool,
	keep func(models.ResolvedProfile) bool,
) ([]models.ResolvedProfile, int, error) {
	records, err := s.records.List(ctx, role.Collection())
	if err != nil {
		return nil, 0, err
	}

	matched := make([]models.ResolvedProfile, 0, len(records))
	for _, record := range records {
		if requireProfile && record.Data.Object(role.ProfileKey()) == nil {
			continue
		}
		profile := ResolveProfile(record.ID, record.Data, role)
		if keep(profile) {
			matched = append(matched, profile)
		}
	}

	return paginate(matched, filter.Page, filter.Limit), len(matched), nil
}

func matchesAny(selected []string, values []string) bool {
	if len(selected) == 0 {
		return true
	}

	available := make(map[string]struct{}, len(values))
	for _, value := range values {
		if key := normalize(value); key != "" {
			available[key] = struct{}{}
		}
	}
	for _, want := range selected {
		if _, ok := available[normalize(want)]; ok {
			return true
		}
	}
	return false
}

// normalize folds case and separators so "Left Back", "left-back" and
// "left_back" compare equal.
func normalize(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}

func paginate[T any](items []T, page, limit int) []T {
	if limit <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
