package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huddle-app/huddle-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CredentialRepository owns the identity provider's login records.
type CredentialRepository struct {
	db DBTX
}

func NewCredentialRepository(db DBTX) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// CreateAccount stores the credential and the user document in every listed
// collection inside one transaction. A duplicate email surfaces as a
// *pgconn.PgError with code 23505.
func (r *CredentialRepository) CreateAccount(
	ctx context.Context,
	credential *models.Credential,
	data *models.Document,
	collections ...string,
) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode user document: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO credentials (user_id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, credential.UserID, strings.ToLower(credential.Email), credential.PasswordHash, string(credential.Role)).
		Scan(&credential.CreatedAt)
	if err != nil {
		return err
	}

	for _, collection := range collections {
		if _, err := tx.Exec(ctx, upsertDocumentSQL, collection, credential.UserID, string(encoded)); err != nil {
			return fmt.Errorf("write %s/%s: %w", collection, credential.UserID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query := `
		SELECT user_id, email, password_hash, role, created_at
		FROM credentials
		WHERE email = $1
	`
	var credential models.Credential
	var role string
	err := r.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).
		Scan(&credential.UserID, &credential.Email, &credential.PasswordHash, &role, &credential.CreatedAt)
	if err != nil {
		return nil, err
	}
	credential.Role = models.Role(role)
	return &credential, nil
}
