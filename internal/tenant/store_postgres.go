// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package tenant

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/dberr"
	"github.com/scholaris/scholaris/pkg/uuid"
)

// ownershipTables maps each resource kind to the table and column holding
// its tenant partition key. Kinds absent here cannot be ownership-checked;
// the service layer rejects them before any SQL runs.
var ownershipTables = map[ResourceKind]struct {
	table string
	idCol string
}{
	KindStudent:          {table: "academic.students", idCol: "id"},
	KindTeacher:          {table: "iam.accounts", idCol: "id"},
	KindCourse:           {table: "academic.courses", idCol: "id"},
	KindVirtualClassroom: {table: "academic.virtual_classrooms", idCol: "id"},
	KindCertificate:      {table: "academic.certificates", idCol: "id"},
}

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const institutionColumns = `id, name, slug, status, plan_id, created_at, updated_at`

func (repository *PostgresRepository) GetInstitution(ctx context.Context, id string) (*Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM tenant.institutions WHERE id = $1`

	inst := &Institution{}
	err := repository.db.QueryRow(ctx, query, id).Scan(
		&inst.ID, &inst.Name, &inst.Slug, &inst.Status, &inst.PlanID, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Classify(err, "Institution")
	}

	return inst, nil
}

func (repository *PostgresRepository) GetInstitutionBySlug(ctx context.Context, slug string) (*Institution, error) {
	query := `SELECT ` + institutionColumns + ` FROM tenant.institutions WHERE slug = $1`

	inst := &Institution{}
	err := repository.db.QueryRow(ctx, query, slug).Scan(
		&inst.ID, &inst.Name, &inst.Slug, &inst.Status, &inst.PlanID, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Classify(err, "Institution")
	}

	return inst, nil
}

func (repository *PostgresRepository) ListInstitutions(ctx context.Context, limit, offset int) ([]*Institution, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx, `SELECT count(*) FROM tenant.institutions`).Scan(&total); err != nil {
		return nil, 0, dberr.Classify(err, "Institution")
	}

	query := `SELECT ` + institutionColumns + ` FROM tenant.institutions ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := repository.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Classify(err, "Institution")
	}
	defer rows.Close()

	var institutions []*Institution
	for rows.Next() {
		inst := &Institution{}
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Slug, &inst.Status, &inst.PlanID, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, 0, dberr.Classify(err, "Institution")
		}
		institutions = append(institutions, inst)
	}

	return institutions, total, nil
}

func (repository *PostgresRepository) CreateInstitution(ctx context.Context, inst *Institution) error {
	if inst.ID == "" {
		inst.ID = uuid.New()
	}

	query := `
		INSERT INTO tenant.institutions (id, name, slug, status, plan_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := repository.db.QueryRow(ctx, query, inst.ID, inst.Name, inst.Slug, inst.Status, inst.PlanID).
		Scan(&inst.CreatedAt, &inst.UpdatedAt)

	return dberr.Classify(err, "Institution")
}

func (repository *PostgresRepository) UpdateInstitution(ctx context.Context, inst *Institution) error {
	query := `
		UPDATE tenant.institutions
		SET name = $2, slug = $3, plan_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, inst.ID, inst.Name, inst.Slug, inst.PlanID).Scan(&inst.UpdatedAt)
	return dberr.Classify(err, "Institution")
}

func (repository *PostgresRepository) UpdateInstitutionStatus(ctx context.Context, id, status string) error {
	cmd, err := repository.db.Exec(ctx,
		`UPDATE tenant.institutions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return dberr.Classify(err, "Institution")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.Classify(pgx.ErrNoRows, "Institution")
	}

	return nil
}

func (repository *PostgresRepository) ResourceInstitution(ctx context.Context, kind ResourceKind, resourceID string) (string, error) {
	ref, ok := ownershipTables[kind]
	if !ok {
		// Service-layer validation makes this unreachable; fail closed anyway.
		return "", dberr.Classify(pgx.ErrNoRows, string(kind))
	}

	var institutionID string
	query := `SELECT institution_id FROM ` + ref.table + ` WHERE ` + ref.idCol + ` = $1`
	if err := repository.db.QueryRow(ctx, query, resourceID).Scan(&institutionID); err != nil {
		return "", dberr.Classify(err, resourceLabel(kind))
	}

	return institutionID, nil
}

func (repository *PostgresRepository) CountOwned(ctx context.Context, kind ResourceKind, ids []string, institutionID string) (int, error) {
	ref, ok := ownershipTables[kind]
	if !ok {
		return 0, nil
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var count int
	query := `SELECT count(*) FROM ` + ref.table + ` WHERE ` + ref.idCol + ` = ANY($1) AND institution_id = $2`
	if err := repository.db.QueryRow(ctx, query, ids, institutionID).Scan(&count); err != nil {
		return 0, dberr.Classify(err, resourceLabel(kind))
	}

	return count, nil
}

// resourceLabel names a kind for client-facing error messages.
func resourceLabel(kind ResourceKind) string {
	switch kind {
	case KindStudent:
		return "Student"
	case KindTeacher:
		return "Teacher"
	case KindCourse:
		return "Course"
	case KindVirtualClassroom:
		return "Virtual classroom"
	case KindCertificate:
		return "Certificate"
	default:
		return "Resource"
	}
}
