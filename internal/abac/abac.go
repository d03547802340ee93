// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package abac makes attribute-based authorization decisions.

A decision combines three attribute sources: the principal's active role,
the tenant institution, and the institution's subscription plan (quota
limits and feature gates). The package builds a transient per-request
context from those sources and never caches it across requests, so
subscription changes take effect immediately.

Quota checks performed here are advisory fail-fast checks; creation paths
must re-validate inside the same transaction that performs the insert. The
academic packages do exactly that via [Evaluator.CheckPlanLimitTx].
*/
package abac

import (
	"time"

	"github.com/scholaris/scholaris/internal/billing/plan"
	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/tenant"
)

// Action is the operation class being authorized.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Context aggregates the attributes one authorization decision needs.
// Rebuilt per request, never persisted.
type Context struct {
	Principal   *identity.Identity
	Institution *tenant.Institution

	// Plan is nil when the institution has no subscription. A nil plan
	// denies every quota-gated and feature-gated action; role checks still
	// apply.
	Plan *plan.Plan
}

// HasPlan reports whether quota and feature decisions have a plan to
// evaluate against.
func (c *Context) HasPlan() bool {
	return c.Plan != nil
}

// limitFor picks the plan field that caps the given resource kind.
// The second return is false for kinds that have no quota field.
func limitFor(p *plan.Plan, kind tenant.ResourceKind) (int, bool) {
	switch kind {
	case tenant.KindStudent:
		return p.StudentLimit, true
	case tenant.KindTeacher:
		return p.TeacherLimit, true
	case tenant.KindCourse:
		return p.CourseLimit, true
	case tenant.KindVirtualClassroom:
		return p.VirtualClassroomLimit, true
	case tenant.KindCertificate:
		return p.CertificateMonthly, true
	default:
		return 0, false
	}
}

// monthStart returns the first instant of now's calendar month, in now's
// location. Certificate quotas count issuance inside [monthStart, now).
func monthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}
