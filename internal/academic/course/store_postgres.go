// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package course

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris/scholaris/internal/platform/dberr"
	"github.com/scholaris/scholaris/pkg/uuid"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const courseColumns = `id, institution_id, title, slug, description, is_published, published_at, created_at, updated_at`

func scanCourse(row pgx.Row) (*Course, error) {
	c := &Course{}
	err := row.Scan(&c.ID, &c.InstitutionID, &c.Title, &c.Slug, &c.Description,
		&c.IsPublished, &c.PublishedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (repository *PostgresRepository) ListCourses(ctx context.Context, institutionID string, limit, offset int) ([]*Course, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx,
		`SELECT count(*) FROM academic.courses WHERE institution_id = $1`, institutionID).Scan(&total); err != nil {
		return nil, 0, dberr.Classify(err, "Course")
	}

	query := `
		SELECT ` + courseColumns + `
		FROM academic.courses
		WHERE institution_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := repository.db.Query(ctx, query, institutionID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Classify(err, "Course")
	}
	defer rows.Close()

	var courses []*Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, 0, dberr.Classify(err, "Course")
		}
		courses = append(courses, c)
	}

	return courses, total, nil
}

func (repository *PostgresRepository) GetCourse(ctx context.Context, id string) (*Course, error) {
	query := `SELECT ` + courseColumns + ` FROM academic.courses WHERE id = $1`

	c, err := scanCourse(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Classify(err, "Course")
	}
	return c, nil
}

func (repository *PostgresRepository) GetCourseBySlug(ctx context.Context, institutionID, slug string) (*Course, error) {
	query := `SELECT ` + courseColumns + ` FROM academic.courses WHERE institution_id = $1 AND slug = $2`

	c, err := scanCourse(repository.db.QueryRow(ctx, query, institutionID, slug))
	if err != nil {
		return nil, dberr.Classify(err, "Course")
	}
	return c, nil
}

func (repository *PostgresRepository) CreateCourse(ctx context.Context, c *Course, quotaCheck QuotaCheck) error {
	if c.ID == "" {
		c.ID = uuid.New()
	}

	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Classify(err, "Course")
	}
	defer tx.Rollback(ctx)

	if quotaCheck != nil {
		if err := quotaCheck(ctx, tx); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO academic.courses (id, institution_id, title, slug, description, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
		RETURNING created_at, updated_at
	`, c.ID, c.InstitutionID, c.Title, c.Slug, c.Description).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return dberr.Classify(err, "Course")
	}

	return dberr.Classify(tx.Commit(ctx), "Course")
}

func (repository *PostgresRepository) UpdateCourse(ctx context.Context, c *Course) error {
	query := `
		UPDATE academic.courses
		SET title = $2, slug = $3, description = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, c.ID, c.Title, c.Slug, c.Description).Scan(&c.UpdatedAt)
	return dberr.Classify(err, "Course")
}

func (repository *PostgresRepository) SetPublished(ctx context.Context, id string, published bool) (*Course, error) {
	query := `
		UPDATE academic.courses
		SET is_published = $2,
		    published_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + courseColumns + `
	`
	c, err := scanCourse(repository.db.QueryRow(ctx, query, id, published))
	if err != nil {
		return nil, dberr.Classify(err, "Course")
	}
	return c, nil
}

func (repository *PostgresRepository) DeleteCourse(ctx context.Context, id string) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM academic.courses WHERE id = $1`, id)
	if err != nil {
		return dberr.Classify(err, "Course")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.Classify(pgx.ErrNoRows, "Course")
	}

	return nil
}
