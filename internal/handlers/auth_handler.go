package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/huddle-app/huddle-backend/internal/services"
	"github.com/huddle-app/huddle-backend/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type credentialStore interface {
	CreateAccount(ctx context.Context, credential *models.Credential, data *models.Document, collections ...string) error
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
}

type accountReader interface {
	GetRecord(ctx context.Context, id string) (*models.Record, error)
}

type AuthHandler struct {
	credentials credentialStore
	accounts    accountReader
	jwtSecret   string
	now         func() time.Time
}

func NewAuthHandler(credentials credentialStore, accounts accountReader, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		accounts:    accounts,
		jwtSecret:   jwtSecret,
		now:         time.Now,
	}
}

type registerRequest struct {
	Email     string           `json:"email" validate:"required,email"`
	Password  string           `json:"password" validate:"required,min=8"`
	Role      string           `json:"role" validate:"required,oneof=athlete parent coach team league merchant"`
	FirstName string           `json:"first_name" validate:"max=100"`
	LastName  string           `json:"last_name" validate:"max=100"`
	Profile   *models.Document `json:"profile"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	role, _ := models.ParseRole(req.Role)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to hash password"})
	}

	credential := &models.Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	}
	data := buildUserDocument(req, email, role, h.now())

	if err := h.credentials.CreateAccount(c.Context(), credential, data, models.UsersCollection, role.Collection()); err != nil {
		return mapAuthError(c, classifyAccountError(err), "Failed to create user")
	}

	token, err := utils.GenerateToken(credential.UserID, string(role), h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    credential.UserID,
			"email": credential.Email,
			"role":  credential.Role,
			"name":  services.ResolveDisplayName(data, role),
		},
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := parseAndValidate(c, &req); !ok {
		return err
	}

	credential, err := h.credentials.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return mapAuthError(c, classifyAccountError(err), "Failed to lookup user")
	}

	if !utils.CheckPassword(req.Password, credential.PasswordHash) {
		return mapAuthError(c, services.ErrUnauthorized, "Failed to lookup user")
	}

	token, err := utils.GenerateToken(credential.UserID, string(credential.Role), h.jwtSecret)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    credential.UserID,
			"email": credential.Email,
			"role":  credential.Role,
		},
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	viewer, ok := viewerFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	record, err := h.accounts.GetRecord(c.Context(), viewer.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch user"})
	}

	role := record.Role()
	if role == "" {
		role = viewer.Role
	}
	profile := services.ResolveProfile(record.ID, record.Data, role)

	return c.JSON(fiber.Map{
		"user":    record.Data,
		"profile": profile,
	})
}

// classifyAccountError turns credential store errors into service sentinels.
// A duplicate email is a unique violation (23505); an unknown email is no row.
func classifyAccountError(err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return fmt.Errorf("%w: %s", services.ErrConflict, pgErr.ConstraintName)
	case errors.Is(err, pgx.ErrNoRows):
		return services.ErrUnauthorized
	default:
		return err
	}
}

func mapAuthError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already exists"})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}

// buildUserDocument lays out a new user the way registration always has:
// top-level identity fields followed by the role sub-profile.
func buildUserDocument(req registerRequest, email string, role models.Role, now time.Time) *models.Document {
	data := models.NewDocument()
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	data.Set("firstName", firstName)
	data.Set("lastName", lastName)
	if name := strings.TrimSpace(firstName + " " + lastName); name != "" {
		data.Set("name", name)
	}
	data.Set("email", email)
	data.Set("role", string(role))
	data.Set("createdAt", now.UTC().Format(time.RFC3339))

	profile := req.Profile
	if profile == nil {
		profile = models.NewDocument()
	}
	data.Set(role.ProfileKey(), profile)
	return data
}
