// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package plan

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const planColumns = `
	id, slug, name,
	student_limit, teacher_limit, admin_limit, course_limit,
	virtual_classroom_limit, certificate_monthly,
	ai_teacher_calls_monthly, ai_student_minutes_monthly,
	storage_mb, features, created_at, updated_at
`

func scanPlan(row interface{ Scan(dest ...any) error }) (*Plan, error) {
	p := &Plan{}
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name,
		&p.StudentLimit, &p.TeacherLimit, &p.AdminLimit, &p.CourseLimit,
		&p.VirtualClassroomLimit, &p.CertificateMonthly,
		&p.AITeacherCallsMonthly, &p.AIStudentMinutesMonthly,
		&p.StorageMB, &p.Features, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.Features == nil {
		p.Features = map[string]bool{}
	}
	return p, nil
}

func (repository *PostgresRepository) GetPlan(ctx context.Context, id string) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM billing.plans WHERE id = $1`

	p, err := scanPlan(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Classify(err, "Plan")
	}
	return p, nil
}

func (repository *PostgresRepository) GetPlanBySlug(ctx context.Context, slug string) (*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM billing.plans WHERE slug = $1`

	p, err := scanPlan(repository.db.QueryRow(ctx, query, slug))
	if err != nil {
		return nil, dberr.Classify(err, "Plan")
	}
	return p, nil
}

func (repository *PostgresRepository) ListPlans(ctx context.Context) ([]*Plan, error) {
	query := `SELECT ` + planColumns + ` FROM billing.plans ORDER BY student_limit ASC`

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, dberr.Classify(err, "Plan")
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, dberr.Classify(err, "Plan")
		}
		plans = append(plans, p)
	}

	return plans, nil
}
