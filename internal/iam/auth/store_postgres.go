// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/iam/role"
	"github.com/scholaris/scholaris/internal/platform/dberr"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/pkg/uuid"
)

type PostgresRepository struct {
	db    *pgxpool.Pool
	roles *role.PostgresRepository
}

func NewPostgresRepository(db *pgxpool.Pool, roles *role.PostgresRepository) *PostgresRepository {
	return &PostgresRepository{db: db, roles: roles}
}

const principalColumns = `id, email, password_hash, first_name, last_name, institution_id, is_active, last_login_at, created_at, updated_at`

func scanPrincipal(row pgx.Row) (*Principal, error) {
	p := &Principal{}
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.FirstName, &p.LastName,
		&p.InstitutionID, &p.IsActive, &p.LastLoginAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (repository *PostgresRepository) GetPrincipal(ctx context.Context, id string) (*Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM iam.accounts WHERE id = $1`

	p, err := scanPrincipal(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Classify(err, "Account")
	}
	return p, nil
}

func (repository *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM iam.accounts WHERE lower(email) = lower($1)`

	p, err := scanPrincipal(repository.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, dberr.Classify(err, "Account")
	}
	return p, nil
}

func (repository *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := repository.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM iam.accounts WHERE lower(email) = lower($1))`, email).Scan(&exists)
	if err != nil {
		return false, dberr.Classify(err, "Account")
	}

	return exists, nil
}

func (repository *PostgresRepository) RegisterPrincipal(ctx context.Context, principal *Principal, roleID string, roleName sec.RoleName) error {
	if principal.ID == "" {
		principal.ID = uuid.New()
	}

	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Classify(err, "Account")
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO iam.accounts (id, email, password_hash, first_name, last_name, institution_id, is_active, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, TRUE, NOW(), NOW())
		RETURNING is_active, created_at, updated_at
	`, principal.ID, principal.Email, principal.PasswordHash, principal.FirstName, principal.LastName, principal.InstitutionID).
		Scan(&principal.IsActive, &principal.CreatedAt, &principal.UpdatedAt)
	if err != nil {
		return dberr.Classify(err, "Account")
	}

	if _, err := repository.roles.AssignRoleTx(ctx, tx, principal.ID, roleID, true); err != nil {
		return err
	}

	if err := repository.createProfileRow(ctx, tx, principal, roleName); err != nil {
		return err
	}

	return dberr.Classify(tx.Commit(ctx), "Account")
}

// createProfileRow inserts the role-specific profile record for roles that
// carry one. Administrative roles have no profile table.
func (repository *PostgresRepository) createProfileRow(ctx context.Context, tx pgx.Tx, principal *Principal, roleName sec.RoleName) error {
	switch roleName {
	case sec.RoleStudent:
		_, err := tx.Exec(ctx, `
			INSERT INTO academic.students (id, institution_id, principal_id, first_name, last_name, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, lower($6), NOW(), NOW())
		`, uuid.New(), principal.InstitutionID, principal.ID, principal.FirstName, principal.LastName, principal.Email)
		return dberr.Classify(err, "Student profile")

	case sec.RoleTeacher:
		_, err := tx.Exec(ctx, `
			INSERT INTO academic.teacher_profiles (id, institution_id, principal_id, created_at)
			VALUES ($1, $2, $3, NOW())
		`, uuid.New(), principal.InstitutionID, principal.ID)
		return dberr.Classify(err, "Teacher profile")

	case sec.RoleTutor:
		_, err := tx.Exec(ctx, `
			INSERT INTO academic.tutor_profiles (id, institution_id, principal_id, created_at)
			VALUES ($1, $2, $3, NOW())
		`, uuid.New(), principal.InstitutionID, principal.ID)
		return dberr.Classify(err, "Tutor profile")

	default:
		return nil
	}
}

func (repository *PostgresRepository) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := repository.db.Exec(ctx,
		`UPDATE iam.accounts SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	return dberr.Classify(err, "Account")
}

func (repository *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	cmd, err := repository.db.Exec(ctx,
		`UPDATE iam.accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return dberr.Classify(err, "Account")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.Classify(pgx.ErrNoRows, "Account")
	}

	return nil
}

func (repository *PostgresRepository) AuthState(ctx context.Context, userID string) (*identity.AuthState, error) {
	// One round trip: account, institution status, and the active role
	// (primary, else oldest assignment) joined together.
	query := `
		SELECT acc.id, acc.email, acc.institution_id, acc.is_active,
		       inst.status = 'active' AS institution_active,
		       r.id, r.name
		FROM iam.accounts acc
		JOIN tenant.institutions inst ON inst.id = acc.institution_id
		LEFT JOIN LATERAL (
			SELECT ra.role_id
			FROM iam.role_assignments ra
			WHERE ra.principal_id = acc.id
			ORDER BY ra.is_primary DESC, ra.created_at ASC
			LIMIT 1
		) active ON TRUE
		LEFT JOIN iam.roles r ON r.id = active.role_id
		WHERE acc.id = $1
	`

	state := &identity.AuthState{}
	var roleID, roleName *string
	err := repository.db.QueryRow(ctx, query, userID).Scan(
		&state.ID, &state.Email, &state.InstitutionID, &state.IsActive,
		&state.InstitutionActive, &roleID, &roleName,
	)
	if err != nil {
		return nil, dberr.Classify(err, "Account")
	}

	if roleID != nil && roleName != nil {
		state.HasRole = true
		state.RoleID = *roleID
		state.RoleName = sec.RoleName(*roleName)
	}

	return state, nil
}

// # Reset Tokens

type PostgresResetTokenRepository struct {
	db *pgxpool.Pool
}

func NewPostgresResetTokenRepository(db *pgxpool.Pool) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{db: db}
}

func (repository *PostgresResetTokenRepository) Insert(ctx context.Context, token *ResetToken) error {
	if token.ID == "" {
		token.ID = uuid.New()
	}

	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Classify(err, "Reset token")
	}
	defer tx.Rollback(ctx)

	// A new request supersedes any token still in flight.
	if _, err := tx.Exec(ctx, `
		UPDATE iam.password_reset_tokens SET consumed_at = NOW()
		WHERE principal_id = $1 AND consumed_at IS NULL
	`, token.PrincipalID); err != nil {
		return dberr.Classify(err, "Reset token")
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO iam.password_reset_tokens (id, token_hash, principal_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`, token.ID, token.TokenHash, token.PrincipalID, token.ExpiresAt).Scan(&token.CreatedAt)
	if err != nil {
		return dberr.Classify(err, "Reset token")
	}

	return dberr.Classify(tx.Commit(ctx), "Reset token")
}

func (repository *PostgresResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*ResetToken, error) {
	// Single atomic statement: the row is claimed and returned together, so
	// two concurrent redemptions cannot both succeed.
	query := `
		UPDATE iam.password_reset_tokens
		SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING id, token_hash, principal_id, expires_at, consumed_at, created_at
	`

	token := &ResetToken{}
	err := repository.db.QueryRow(ctx, query, tokenHash, now).Scan(
		&token.ID, &token.TokenHash, &token.PrincipalID, &token.ExpiresAt, &token.ConsumedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, dberr.Classify(err, "Reset token")
	}

	return token, nil
}
