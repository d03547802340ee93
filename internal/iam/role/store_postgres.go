// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package role

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/dberr"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/pkg/uuid"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const roleColumns = `id, name, institution_id, is_system, created_at`

func (repository *PostgresRepository) GetRole(ctx context.Context, id string) (*Role, error) {
	query := `SELECT ` + roleColumns + ` FROM iam.roles WHERE id = $1`

	r := &Role{}
	err := repository.db.QueryRow(ctx, query, id).Scan(&r.ID, &r.Name, &r.InstitutionID, &r.IsSystem, &r.CreatedAt)
	if err != nil {
		return nil, dberr.Classify(err, "Role")
	}

	return r, nil
}

func (repository *PostgresRepository) FindRoleByName(ctx context.Context, name sec.RoleName, institutionID string) (*Role, error) {
	// Institution-scoped roles shadow system roles of the same name.
	query := `
		SELECT ` + roleColumns + `
		FROM iam.roles
		WHERE name = $1 AND (institution_id = $2 OR is_system)
		ORDER BY is_system ASC
		LIMIT 1
	`

	r := &Role{}
	err := repository.db.QueryRow(ctx, query, string(name), institutionID).
		Scan(&r.ID, &r.Name, &r.InstitutionID, &r.IsSystem, &r.CreatedAt)
	if err != nil {
		return nil, dberr.Classify(err, "Role")
	}

	return r, nil
}

func (repository *PostgresRepository) ListRoles(ctx context.Context, institutionID string) ([]*Role, error) {
	query := `
		SELECT ` + roleColumns + `
		FROM iam.roles
		WHERE is_system OR institution_id = $1
		ORDER BY name ASC
	`

	rows, err := repository.db.Query(ctx, query, institutionID)
	if err != nil {
		return nil, dberr.Classify(err, "Role")
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		r := &Role{}
		if err := rows.Scan(&r.ID, &r.Name, &r.InstitutionID, &r.IsSystem, &r.CreatedAt); err != nil {
			return nil, dberr.Classify(err, "Role")
		}
		roles = append(roles, r)
	}

	return roles, nil
}

func (repository *PostgresRepository) AssignRole(ctx context.Context, principalID, roleID string, primary bool) (*Assignment, error) {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return nil, dberr.Classify(err, "Role assignment")
	}
	defer tx.Rollback(ctx)

	assignment, err := repository.AssignRoleTx(ctx, tx, principalID, roleID, primary)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, dberr.Classify(err, "Role assignment")
	}

	return assignment, nil
}

func (repository *PostgresRepository) AssignRoleTx(ctx context.Context, tx pgx.Tx, principalID, roleID string, primary bool) (*Assignment, error) {
	// The principal row is the lock anchor: concurrent assignments for the
	// same principal serialize here, so the one-primary invariant cannot be
	// broken by interleaved writes.
	if _, err := tx.Exec(ctx, `SELECT 1 FROM iam.accounts WHERE id = $1 FOR UPDATE`, principalID); err != nil {
		return nil, dberr.Classify(err, "Principal")
	}

	var existing int
	if err := tx.QueryRow(ctx,
		`SELECT count(*) FROM iam.role_assignments WHERE principal_id = $1`, principalID).Scan(&existing); err != nil {
		return nil, dberr.Classify(err, "Role assignment")
	}

	// First assignment is always the primary one.
	if existing == 0 {
		primary = true
	}

	if primary && existing > 0 {
		if _, err := tx.Exec(ctx,
			`UPDATE iam.role_assignments SET is_primary = FALSE WHERE principal_id = $1 AND is_primary`, principalID); err != nil {
			return nil, dberr.Classify(err, "Role assignment")
		}
	}

	assignment := &Assignment{
		ID:          uuid.New(),
		PrincipalID: principalID,
		RoleID:      roleID,
		IsPrimary:   primary,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO iam.role_assignments (id, principal_id, role_id, is_primary, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`, assignment.ID, principalID, roleID, primary).Scan(&assignment.CreatedAt)
	if err != nil {
		return nil, dberr.Classify(err, "Role assignment")
	}

	return assignment, nil
}

func (repository *PostgresRepository) SetPrimary(ctx context.Context, principalID, assignmentID string) error {
	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Classify(err, "Role assignment")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT 1 FROM iam.accounts WHERE id = $1 FOR UPDATE`, principalID); err != nil {
		return dberr.Classify(err, "Principal")
	}

	cmd, err := tx.Exec(ctx, `
		UPDATE iam.role_assignments SET is_primary = TRUE
		WHERE id = $1 AND principal_id = $2
	`, assignmentID, principalID)
	if err != nil {
		return dberr.Classify(err, "Role assignment")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.Classify(pgx.ErrNoRows, "Role assignment")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE iam.role_assignments SET is_primary = FALSE
		WHERE principal_id = $1 AND id <> $2 AND is_primary
	`, principalID, assignmentID); err != nil {
		return dberr.Classify(err, "Role assignment")
	}

	return dberr.Classify(tx.Commit(ctx), "Role assignment")
}

func (repository *PostgresRepository) ListAssignments(ctx context.Context, principalID string) ([]*Assignment, error) {
	query := `
		SELECT id, principal_id, role_id, is_primary, created_at
		FROM iam.role_assignments
		WHERE principal_id = $1
		ORDER BY created_at ASC
	`

	rows, err := repository.db.Query(ctx, query, principalID)
	if err != nil {
		return nil, dberr.Classify(err, "Role assignment")
	}
	defer rows.Close()

	var assignments []*Assignment
	for rows.Next() {
		a := &Assignment{}
		if err := rows.Scan(&a.ID, &a.PrincipalID, &a.RoleID, &a.IsPrimary, &a.CreatedAt); err != nil {
			return nil, dberr.Classify(err, "Role assignment")
		}
		assignments = append(assignments, a)
	}

	return assignments, nil
}

func (repository *PostgresRepository) ActiveRole(ctx context.Context, principalID string) (*Role, error) {
	// Primary first; deterministic created_at order as the fallback if the
	// invariant has been violated out-of-band.
	query := `
		SELECT r.id, r.name, r.institution_id, r.is_system, r.created_at
		FROM iam.role_assignments a
		JOIN iam.roles r ON r.id = a.role_id
		WHERE a.principal_id = $1
		ORDER BY a.is_primary DESC, a.created_at ASC
		LIMIT 1
	`

	r := &Role{}
	err := repository.db.QueryRow(ctx, query, principalID).
		Scan(&r.ID, &r.Name, &r.InstitutionID, &r.IsSystem, &r.CreatedAt)
	if err != nil {
		return nil, dberr.Classify(err, "Role")
	}

	return r, nil
}
