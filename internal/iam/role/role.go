// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package role manages roles and their assignment to principals.

System roles (is_system=true) are shared across institutions; institution
roles scope to one tenant. Assignment maintains a hard invariant: a
principal with any assignments has exactly one marked primary. Token
issuance and authorization always act on that primary role, so "which role
is active" is never storage-order dependent.
*/
package role

import (
	"time"

	"github.com/scholaris/scholaris/internal/platform/sec"
)

// Role is a named capability bundle.
type Role struct {
	ID            string       `json:"id"`
	Name          sec.RoleName `json:"name"`
	InstitutionID *string      `json:"institution_id"`
	IsSystem      bool         `json:"is_system"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Assignment links a principal to a role.
type Assignment struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	RoleID      string    `json:"role_id"`
	IsPrimary   bool      `json:"is_primary"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validated entity field identifiers.
const (
	FieldName        = "name"
	FieldRoleID      = "role_id"
	FieldPrincipalID = "principal_id"
)
