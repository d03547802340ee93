// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

// Package dberr bridges low-level PostgreSQL errors to the application
// error taxonomy.
//
// Stores call [Classify] instead of leaking pgx error types upward. Unique
// violations become Conflict because the database constraint — not the
// application-level fail-fast check — is the real arbiter of uniqueness
// under concurrent writes.
package dberr

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scholaris/scholaris/internal/platform/apperr"
)

// Classify inspects a database error and wraps it into a meaningful
// [apperr.AppError]. The resource name is used for NOT_FOUND and CONFLICT
// messages; internal database detail never reaches the client.
func Classify(err error, resource string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(resource + " already exists")
		case pgerrcode.ForeignKeyViolation:
			return apperr.BadRequest(resource + " references a missing record")
		}
	}

	return apperr.Internal(err)
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation, before classification.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
