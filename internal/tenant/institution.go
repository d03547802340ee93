// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package tenant binds requests to exactly one institution and enforces the
tenant-isolation boundary.

Every domain table is logically partitioned by institution_id but not
physically separated, so ownership of a resource must be proven before any
read or write touches it. This package owns that proof: tenant context
resolution, strict institution equality checks, and per-resource and bulk
ownership validation.
*/
package tenant

import "time"

// Institution statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusPending   = "pending"
)

// Institution is a tenant of the platform.
type Institution struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	PlanID    *string   `json:"plan_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether tenant-scoped operations may run against the
// institution. Only "active" qualifies; suspended and pending tenants are
// read-only to platform operators.
func (i *Institution) IsActive() bool {
	return i.Status == StatusActive
}

// ResourceKind identifies a tenant-partitioned resource class.
//
// The set is closed: ownership checks and quota gates both deny values
// outside it, so adding a new domain table means extending this enum and
// the store's kind registry together.
type ResourceKind string

const (
	KindStudent          ResourceKind = "student"
	KindTeacher          ResourceKind = "teacher"
	KindCourse           ResourceKind = "course"
	KindVirtualClassroom ResourceKind = "virtual_classroom"
	KindCertificate      ResourceKind = "certificate"
)

// KnownKinds lists every supported resource kind.
var KnownKinds = []ResourceKind{
	KindStudent,
	KindTeacher,
	KindCourse,
	KindVirtualClassroom,
	KindCertificate,
}

// IsValid reports whether the kind is a member of the closed set.
func (k ResourceKind) IsValid() bool {
	for _, known := range KnownKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Validated entity field identifiers.
const (
	FieldName   = "name"
	FieldSlug   = "slug"
	FieldStatus = "status"
	FieldPlanID = "plan_id"
)
