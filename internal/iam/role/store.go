// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package role

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/scholaris/scholaris/internal/platform/sec"
)

// Repository is the persistence contract for roles and assignments.
type Repository interface {
	GetRole(ctx context.Context, id string) (*Role, error)

	// FindRoleByName resolves a role for an institution: an institution-
	// scoped role wins over a system role of the same name.
	FindRoleByName(ctx context.Context, name sec.RoleName, institutionID string) (*Role, error)

	ListRoles(ctx context.Context, institutionID string) ([]*Role, error)

	// AssignRole links principal and role, keeping exactly one primary
	// assignment per principal. A principal's first assignment is always
	// primary regardless of the flag.
	AssignRole(ctx context.Context, principalID, roleID string, primary bool) (*Assignment, error)

	// AssignRoleTx is AssignRole running inside a caller-owned transaction,
	// used when the assignment must commit atomically with other writes.
	AssignRoleTx(ctx context.Context, tx pgx.Tx, principalID, roleID string, primary bool) (*Assignment, error)

	// SetPrimary promotes one assignment and demotes the rest atomically.
	SetPrimary(ctx context.Context, principalID, assignmentID string) error

	ListAssignments(ctx context.Context, principalID string) ([]*Assignment, error)

	// ActiveRole returns the role behind the principal's primary assignment,
	// falling back to the oldest assignment if the data invariant is broken.
	ActiveRole(ctx context.Context, principalID string) (*Role, error)
}
