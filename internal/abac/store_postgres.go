// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package abac

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/dberr"
	"github.com/scholaris/scholaris/internal/tenant"
	"github.com/scholaris/scholaris/pkg/uuid"
)

// countQueries maps each quota-gated kind to its live-count statement.
// Teachers are counted through their primary role assignment so demoted
// accounts stop occupying a seat.
var countQueries = map[tenant.ResourceKind]string{
	tenant.KindStudent:          `SELECT count(*) FROM academic.students WHERE institution_id = $1`,
	tenant.KindCourse:           `SELECT count(*) FROM academic.courses WHERE institution_id = $1`,
	tenant.KindVirtualClassroom: `SELECT count(*) FROM academic.virtual_classrooms WHERE institution_id = $1`,
	tenant.KindCertificate:      `SELECT count(*) FROM academic.certificates WHERE institution_id = $1`,
	tenant.KindTeacher: `
		SELECT count(*)
		FROM iam.accounts acc
		JOIN iam.role_assignments ra ON ra.principal_id = acc.id AND ra.is_primary
		JOIN iam.roles r ON r.id = ra.role_id
		WHERE acc.institution_id = $1 AND r.name = 'TEACHER'`,
}

// monthlyQueries covers kinds whose quota is a calendar-month window.
var monthlyQueries = map[tenant.ResourceKind]string{
	tenant.KindCertificate: `SELECT count(*) FROM academic.certificates WHERE institution_id = $1 AND issued_at >= $2`,
}

type PostgresCountRepository struct {
	db *pgxpool.Pool
}

func NewPostgresCountRepository(db *pgxpool.Pool) *PostgresCountRepository {
	return &PostgresCountRepository{db: db}
}

func (repository *PostgresCountRepository) LiveCount(ctx context.Context, kind tenant.ResourceKind, institutionID string) (int, error) {
	query, ok := countQueries[kind]
	if !ok {
		return 0, nil
	}

	var count int
	if err := repository.db.QueryRow(ctx, query, institutionID).Scan(&count); err != nil {
		return 0, dberr.Classify(err, string(kind))
	}

	return count, nil
}

func (repository *PostgresCountRepository) MonthlyCount(ctx context.Context, kind tenant.ResourceKind, institutionID string, monthStart time.Time) (int, error) {
	query, ok := monthlyQueries[kind]
	if !ok {
		return repository.LiveCount(ctx, kind, institutionID)
	}

	var count int
	if err := repository.db.QueryRow(ctx, query, institutionID, monthStart).Scan(&count); err != nil {
		return 0, dberr.Classify(err, string(kind))
	}

	return count, nil
}

func (repository *PostgresCountRepository) LiveCountTx(ctx context.Context, tx pgx.Tx, kind tenant.ResourceKind, institutionID string) (int, error) {
	query, ok := countQueries[kind]
	if !ok {
		return 0, nil
	}

	var count int
	if err := tx.QueryRow(ctx, query, institutionID).Scan(&count); err != nil {
		return 0, dberr.Classify(err, string(kind))
	}

	return count, nil
}

// # AI Usage

type PostgresUsageRepository struct {
	db *pgxpool.Pool
}

func NewPostgresUsageRepository(db *pgxpool.Pool) *PostgresUsageRepository {
	return &PostgresUsageRepository{db: db}
}

func (repository *PostgresUsageRepository) RecordUsage(ctx context.Context, institutionID, metric string, amount int) error {
	_, err := repository.db.Exec(ctx, `
		INSERT INTO billing.ai_usage (id, institution_id, metric, amount, recorded_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, uuid.New(), institutionID, metric, amount)

	return dberr.Classify(err, "Usage record")
}

func (repository *PostgresUsageRepository) MonthlyUsage(ctx context.Context, institutionID, metric string, monthStart time.Time) (int, error) {
	var total int
	err := repository.db.QueryRow(ctx, `
		SELECT COALESCE(sum(amount), 0)
		FROM billing.ai_usage
		WHERE institution_id = $1 AND metric = $2 AND recorded_at >= $3
	`, institutionID, metric, monthStart).Scan(&total)
	if err != nil {
		return 0, dberr.Classify(err, "Usage record")
	}

	return total, nil
}
