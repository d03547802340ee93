// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package student

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

const studentColumns = `id, institution_id, principal_id, first_name, last_name, email, created_at, updated_at`

func scanStudent(row pgx.Row) (*Student, error) {
	s := &Student{}
	err := row.Scan(&s.ID, &s.InstitutionID, &s.PrincipalID, &s.FirstName, &s.LastName, &s.Email, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (repository *PostgresRepository) ListStudents(ctx context.Context, institutionID string, limit, offset int) ([]*Student, int, error) {
	var total int
	if err := repository.db.QueryRow(ctx,
		`SELECT count(*) FROM academic.students WHERE institution_id = $1`, institutionID).Scan(&total); err != nil {
		return nil, 0, dberr.Classify(err, "Student")
	}

	query := `
		SELECT ` + studentColumns + `
		FROM academic.students
		WHERE institution_id = $1
		ORDER BY last_name ASC, first_name ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := repository.db.Query(ctx, query, institutionID, limit, offset)
	if err != nil {
		return nil, 0, dberr.Classify(err, "Student")
	}
	defer rows.Close()

	var students []*Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, dberr.Classify(err, "Student")
		}
		students = append(students, s)
	}

	return students, total, nil
}

func (repository *PostgresRepository) GetStudent(ctx context.Context, id string) (*Student, error) {
	query := `SELECT ` + studentColumns + ` FROM academic.students WHERE id = $1`

	s, err := scanStudent(repository.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, dberr.Classify(err, "Student")
	}
	return s, nil
}

func (repository *PostgresRepository) CreateStudent(ctx context.Context, s *Student, quotaCheck QuotaCheck) error {
	if s.ID == "" {
		s.ID = uuid.New()
	}

	tx, err := repository.db.Begin(ctx)
	if err != nil {
		return dberr.Classify(err, "Student")
	}
	defer tx.Rollback(ctx)

	if quotaCheck != nil {
		if err := quotaCheck(ctx, tx); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO academic.students (id, institution_id, principal_id, first_name, last_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, lower($6), NOW(), NOW())
		RETURNING created_at, updated_at
	`, s.ID, s.InstitutionID, s.PrincipalID, s.FirstName, s.LastName, s.Email).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return dberr.Classify(err, "Student")
	}

	return dberr.Classify(tx.Commit(ctx), "Student")
}

func (repository *PostgresRepository) UpdateStudent(ctx context.Context, s *Student) error {
	query := `
		UPDATE academic.students
		SET first_name = $2, last_name = $3, email = lower($4), updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.db.QueryRow(ctx, query, s.ID, s.FirstName, s.LastName, s.Email).Scan(&s.UpdatedAt)
	return dberr.Classify(err, "Student")
}

func (repository *PostgresRepository) DeleteStudent(ctx context.Context, id string) error {
	cmd, err := repository.db.Exec(ctx, `DELETE FROM academic.students WHERE id = $1`, id)
	if err != nil {
		return dberr.Classify(err, "Student")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.Classify(pgx.ErrNoRows, "Student")
	}

	return nil
}

func (repository *PostgresRepository) DeleteStudents(ctx context.Context, institutionID string, ids []string) (int, error) {
	cmd, err := repository.db.Exec(ctx,
		`DELETE FROM academic.students WHERE institution_id = $1 AND id = ANY($2)`, institutionID, ids)
	if err != nil {
		return 0, dberr.Classify(err, "Student")
	}

	return int(cmd.RowsAffected()), nil
}
