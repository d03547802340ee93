// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package course

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// QuotaCheck runs inside the creating transaction, before the insert. A
// non-nil error aborts the transaction.
type QuotaCheck func(ctx context.Context, tx pgx.Tx) error

type Repository interface {
	ListCourses(ctx context.Context, institutionID string, limit, offset int) ([]*Course, int, error)
	GetCourse(ctx context.Context, id string) (*Course, error)
	GetCourseBySlug(ctx context.Context, institutionID, slug string) (*Course, error)
	CreateCourse(ctx context.Context, c *Course, quotaCheck QuotaCheck) error
	UpdateCourse(ctx context.Context, c *Course) error
	SetPublished(ctx context.Context, id string, published bool) (*Course, error)
	DeleteCourse(ctx context.Context, id string) error
}
