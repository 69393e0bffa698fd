package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/jackc/pgx/v5"
)

type ProfileStore interface {
	Get(ctx context.Context, collection, id string) (*models.Record, error)
	PutMirrored(ctx context.Context, id string, data *models.Document, collections ...string) error
}

type ProfileService struct {
	store ProfileStore
	now   func() time.Time
}

// ProfilePatch is a partial update. Nil fields are left untouched; Profile
// keys are merged into the role sub-profile.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Profile   *models.Document
}

func NewProfileService(store ProfileStore) *ProfileService {
	return &ProfileService{store: store, now: time.Now}
}

// GetRecord returns the raw user document.
func (s *ProfileService) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.store.Get(ctx, models.UsersCollection, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *ProfileService) Get(ctx context.Context, id string) (*models.ResolvedProfile, error) {
	record, err := s.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	profile := ResolveProfile(record.ID, record.Data, record.Role())
	return &profile, nil
}

// UpdateProfile merges patch into the viewer's user document and writes it to
// the users collection and the role collection together.
func (s *ProfileService) UpdateProfile(ctx context.Context, viewer Viewer, patch ProfilePatch) (*models.ResolvedProfile, error) {
	record, err := s.GetRecord(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	role := record.Role()
	if role == "" {
		role = viewer.Role
	}
	if !role.Valid() {
		return nil, ErrForbidden
	}

	data := record.Data.Clone()
	namesChanged := false
	if patch.FirstName != nil {
		data.Set("firstName", strings.TrimSpace(*patch.FirstName))
		namesChanged = true
	}
	if patch.LastName != nil {
		data.Set("lastName", strings.TrimSpace(*patch.LastName))
		namesChanged = true
	}
	if namesChanged {
		fullName := strings.TrimSpace(scalarString(data.Value("firstName")) + " " + scalarString(data.Value("lastName")))
		if fullName != "" {
			data.Set("name", fullName)
		}
	}

	if patch.Profile != nil && patch.Profile.Len() > 0 {
		profileKey := role.ProfileKey()
		sub := data.Object(profileKey)
		if sub == nil {
			sub = models.NewDocument()
		}
		for _, key := range patch.Profile.Keys() {
			sub.Set(key, patch.Profile.Value(key))
		}
		data.Set(profileKey, sub)
	}

	data.Set("updatedAt", s.now().UTC().Format(time.RFC3339))

	if err := s.store.PutMirrored(ctx, viewer.ID, data, models.UsersCollection, role.Collection()); err != nil {
		return nil, err
	}

	profile := ResolveProfile(viewer.ID, data, role)
	return &profile, nil
}
