package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/huddle-app/huddle-backend/internal/services"
	"github.com/huddle-app/huddle-backend/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubCredentialStore struct {
	byEmail     map[string]*models.Credential
	createErr   error
	created     *models.Credential
	createdData *models.Document
	collections []string
}

func (s *stubCredentialStore) CreateAccount(_ context.Context, credential *models.Credential, data *models.Document, collections ...string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = credential
	s.createdData = data
	s.collections = collections
	return nil
}

func (s *stubCredentialStore) GetByEmail(_ context.Context, email string) (*models.Credential, error) {
	credential, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return credential, nil
}

type stubAccountReader struct {
	records map[string]*models.Record
}

func (s *stubAccountReader) GetRecord(_ context.Context, id string) (*models.Record, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	return record, nil
}

func newAuthTestApp(handler *AuthHandler) *fiber.App {
	app := fiber.New()
	app.Post("/api/auth/register", handler.Register)
	app.Post("/api/auth/login", handler.Login)
	return app
}

func TestRegisterCreatesAccountInUsersAndRoleCollection(t *testing.T) {
	store := &stubCredentialStore{}
	handler := NewAuthHandler(store, &stubAccountReader{}, "secret")
	handler.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	app := newAuthTestApp(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{
		"email": "Kim@Example.com",
		"password": "password123",
		"role": "coach",
		"first_name": "Kim",
		"last_name": "Park",
		"profile": {"sports": ["soccer"], "bio": "UEFA B"}
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if store.created == nil || store.created.Email != "kim@example.com" || store.created.Role != models.RoleCoach {
		t.Fatalf("unexpected credential: %+v", store.created)
	}
	if len(store.collections) != 2 || store.collections[0] != "users" || store.collections[1] != "coaches" {
		t.Fatalf("unexpected collections: %v", store.collections)
	}
	if !utils.CheckPassword("password123", store.created.PasswordHash) {
		t.Fatal("expected stored hash to match the password")
	}

	wantKeys := []string{"firstName", "lastName", "name", "email", "role", "createdAt", "coachProfile"}
	if got := store.createdData.Keys(); strings.Join(got, ",") != strings.Join(wantKeys, ",") {
		t.Fatalf("unexpected document keys: %v", got)
	}
	if got := store.createdData.Value("createdAt"); got != "2026-01-02T03:04:05Z" {
		t.Fatalf("unexpected createdAt: %v", got)
	}

	var body struct {
		Token string `json:"token"`
		User  struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.User.Name != "Kim Park" || body.User.Role != "coach" || body.User.ID != store.created.UserID {
		t.Fatalf("unexpected user payload: %+v", body.User)
	}

	claims, err := utils.ValidateToken(body.Token, "secret")
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != store.created.UserID || claims.Role != "coach" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	store := &stubCredentialStore{}
	app := newAuthTestApp(NewAuthHandler(store, &stubAccountReader{}, "secret"))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"a@b.co","password":"password123","role":"referee"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if store.created != nil {
		t.Fatal("account should not be created")
	}
}

func TestRegisterMapsDuplicateEmail(t *testing.T) {
	store := &stubCredentialStore{createErr: &pgconn.PgError{Code: "23505"}}
	app := newAuthTestApp(NewAuthHandler(store, &stubAccountReader{}, "secret"))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{"email":"a@b.co","password":"password123","role":"athlete"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestClassifyAccountError(t *testing.T) {
	other := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "duplicate email", err: fmt.Errorf("write users/u1: %w", &pgconn.PgError{Code: "23505", ConstraintName: "credentials_email_key"}), want: services.ErrConflict},
		{name: "unknown email", err: pgx.ErrNoRows, want: services.ErrUnauthorized},
		{name: "other pg error", err: &pgconn.PgError{Code: "23503"}, want: nil},
		{name: "other error", err: other, want: other},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyAccountError(tc.err)
			if tc.want == nil {
				if errors.Is(got, services.ErrConflict) || errors.Is(got, services.ErrUnauthorized) {
					t.Fatalf("unexpected sentinel: %v", got)
				}
				return
			}
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	store := &stubCredentialStore{byEmail: map[string]*models.Credential{
		"a@b.co": {UserID: "a1", Email: "a@b.co", PasswordHash: hash, Role: models.RoleAthlete},
	}}
	app := newAuthTestApp(NewAuthHandler(store, &stubAccountReader{}, "secret"))

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "valid", body: `{"email":"a@b.co","password":"password123"}`, status: http.StatusOK},
		{name: "wrong password", body: `{"email":"a@b.co","password":"nope"}`, status: http.StatusUnauthorized},
		{name: "unknown email", body: `{"email":"x@b.co","password":"password123"}`, status: http.StatusUnauthorized},
		{name: "missing email", body: `{"password":"password123"}`, status: http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

func TestMeResolvesProfile(t *testing.T) {
	data := models.NewDocument()
	data.Set("name", "Pat")
	data.Set("role", "parent")
	accounts := &stubAccountReader{records: map[string]*models.Record{
		"p1": {Collection: "users", ID: "p1", Data: data},
	}}
	handler := NewAuthHandler(&stubCredentialStore{}, accounts, "secret")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "p1")
		c.Locals("role", "parent")
		return c.Next()
	})
	app.Get("/api/auth/me", handler.Me)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Profile models.ResolvedProfile `json:"profile"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Profile.Title != "Pat (Parent)" {
		t.Fatalf("unexpected title: %q", body.Profile.Title)
	}
}
