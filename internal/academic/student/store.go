// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package student

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// QuotaCheck re-validates a plan limit inside the creating transaction.
type QuotaCheck func(ctx context.Context, tx pgx.Tx) error

// Repository is the persistence contract for the roster.
type Repository interface {
	ListStudents(ctx context.Context, institutionID string, limit, offset int) ([]*Student, int, error)
	GetStudent(ctx context.Context, id string) (*Student, error)

	// CreateStudent inserts inside a transaction, running quotaCheck first
	// so the count the check sees and the insert commit atomically.
	CreateStudent(ctx context.Context, s *Student, quotaCheck QuotaCheck) error

	UpdateStudent(ctx context.Context, s *Student) error
	DeleteStudent(ctx context.Context, id string) error

	// DeleteStudents removes a batch scoped to one institution and returns
	// how many rows went away.
	DeleteStudents(ctx context.Context, institutionID string, ids []string) (int, error)
}
