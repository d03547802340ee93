// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package abac

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scholaris/scholaris/internal/billing/plan"
	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/metrics"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/tenant"
)

// Evaluator makes role, quota, and feature decisions.
type Evaluator struct {
	plans   plan.Repository
	counts  CountRepository
	auditor *audit.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// EvaluatorOption customizes an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithClock overrides the evaluator's time source. Tests use it to pin the
// calendar-month window.
func WithClock(fn func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = fn }
}

func NewEvaluator(plans plan.Repository, counts CountRepository, auditor *audit.Recorder, logger *slog.Logger, opts ...EvaluatorOption) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	evaluator := &Evaluator{
		plans:   plans,
		counts:  counts,
		auditor: auditor,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(evaluator)
	}
	return evaluator
}

/*
BuildContext assembles the per-request authorization context.

The institution's plan is loaded fresh on every call — contexts are cheap
and staleness after a subscription change is worse than the extra read. A
dangling plan reference degrades to "no plan" (all quota-gated actions
denied) instead of failing the request.
*/
func (evaluator *Evaluator) BuildContext(ctx context.Context, principal *identity.Identity, inst *tenant.Institution) (*Context, error) {
	if principal == nil || inst == nil {
		return nil, apperr.BadRequest("Authorization context requires a principal and a tenant")
	}

	abacCtx := &Context{Principal: principal, Institution: inst}

	if inst.PlanID != nil {
		p, err := evaluator.plans.GetPlan(ctx, *inst.PlanID)
		switch {
		case err == nil:
			abacCtx.Plan = p
		case apperr.IsKind(err, apperr.CodeNotFound):
			evaluator.logger.WarnContext(ctx, "institution references missing plan",
				slog.String("institution_id", inst.ID), slog.String("plan_id", *inst.PlanID))
		default:
			return nil, err
		}
	}

	return abacCtx, nil
}

// CheckRole verifies the principal's active role is in the allowed set.
// ADMIN gets no implicit pass here; call sites enumerate every qualifying
// role explicitly.
func (evaluator *Evaluator) CheckRole(ctx context.Context, abacCtx *Context, allowed ...sec.RoleName) error {
	if abacCtx.Principal.RoleName.In(allowed...) {
		metrics.RecordDecision(metrics.StageRole, metrics.OutcomeAllowed)
		return nil
	}

	metrics.RecordDecision(metrics.StageRole, metrics.OutcomeDenied)
	evaluator.auditor.Record(ctx, audit.Event{
		Name:          audit.EventAuthDenied,
		PrincipalID:   abacCtx.Principal.ID,
		InstitutionID: abacCtx.Institution.ID,
		Details: map[string]any{
			"reason": "role_not_allowed",
			"role":   string(abacCtx.Principal.RoleName),
		},
	})
	return apperr.Forbidden("Role is not permitted to perform this action")
}

/*
CheckPlanLimit enforces the plan quota for creating a resource.

Only creates are quota-gated; reads, updates and deletes always pass. The
check is inclusive: once the live count reaches the limit, the next create
is denied. Certificate counts are scoped to the current calendar month.
The kind set is closed — unknown kinds are denied, not waved through.
*/
func (evaluator *Evaluator) CheckPlanLimit(ctx context.Context, abacCtx *Context, kind tenant.ResourceKind, action Action) error {
	if action != ActionCreate {
		return nil
	}
	if !kind.IsValid() {
		return evaluator.denyQuota(ctx, abacCtx, kind, "unknown_resource_kind", 0, 0)
	}
	if !abacCtx.HasPlan() {
		return evaluator.denyQuota(ctx, abacCtx, kind, "no_plan", 0, 0)
	}

	limit, ok := limitFor(abacCtx.Plan, kind)
	if !ok {
		return evaluator.denyQuota(ctx, abacCtx, kind, "unknown_resource_kind", 0, 0)
	}
	if limit == plan.Unlimited {
		metrics.RecordDecision(metrics.StagePlanLimit, metrics.OutcomeAllowed)
		return nil
	}

	count, err := evaluator.currentCount(ctx, kind, abacCtx.Institution.ID)
	if err != nil {
		return err
	}

	if count >= limit {
		return evaluator.denyQuota(ctx, abacCtx, kind, "limit_reached", count, limit)
	}

	metrics.RecordDecision(metrics.StagePlanLimit, metrics.OutcomeAllowed)
	return nil
}

// CheckPlanLimitTx re-runs the quota check inside a caller-owned
// transaction, immediately before the insert that consumes the quota.
// Concurrent creates serialize on the insert's table locks, so two requests
// cannot jointly exceed the limit once both paths use this re-check.
func (evaluator *Evaluator) CheckPlanLimitTx(ctx context.Context, tx pgx.Tx, abacCtx *Context, kind tenant.ResourceKind) error {
	if !kind.IsValid() || !abacCtx.HasPlan() {
		return apperr.Forbidden("Plan quota unavailable")
	}

	limit, ok := limitFor(abacCtx.Plan, kind)
	if !ok {
		return apperr.Forbidden("Plan quota unavailable")
	}
	if limit == plan.Unlimited {
		return nil
	}

	count, err := evaluator.counts.LiveCountTx(ctx, tx, kind, abacCtx.Institution.ID)
	if err != nil {
		return err
	}
	if count >= limit {
		return evaluator.denyQuota(ctx, abacCtx, kind, "limit_reached", count, limit)
	}

	return nil
}

// CheckFeature gates non-count capabilities on the plan.
func (evaluator *Evaluator) CheckFeature(ctx context.Context, abacCtx *Context, feature string) error {
	if !abacCtx.HasPlan() || !abacCtx.Plan.AllowsFeature(feature) {
		metrics.RecordDecision(metrics.StageFeature, metrics.OutcomeDenied)
		evaluator.auditor.Record(ctx, audit.Event{
			Name:          audit.EventFeatureDenied,
			PrincipalID:   abacCtx.Principal.ID,
			InstitutionID: abacCtx.Institution.ID,
			Details:       map[string]any{"feature": feature},
		})
		return apperr.Forbidden("Feature is not included in the current plan")
	}

	metrics.RecordDecision(metrics.StageFeature, metrics.OutcomeAllowed)
	return nil
}

/*
EvaluateAccess is the in-process decision combinator for callers that need
a boolean rather than middleware semantics.

ADMIN always passes. Creates pass whenever a plan is present (the quota
gate runs separately via CheckPlanLimit). Everything else goes through
per-kind role allow-lists, and unknown kinds deny — the same closed-set
default the quota gate uses.
*/
func (evaluator *Evaluator) EvaluateAccess(abacCtx *Context, kind tenant.ResourceKind, action Action) bool {
	if abacCtx.Principal.RoleName == sec.RoleAdmin {
		return true
	}
	if !kind.IsValid() {
		return false
	}
	if action == ActionCreate {
		return abacCtx.HasPlan()
	}

	allowed, ok := accessPolicy[kind][action]
	if !ok {
		return false
	}
	return abacCtx.Principal.RoleName.In(allowed...)
}

// accessPolicy is the non-admin role allow-list per kind and action.
var accessPolicy = map[tenant.ResourceKind]map[Action][]sec.RoleName{
	tenant.KindStudent: {
		ActionRead:   {sec.RoleSecretary, sec.RoleDirector},
		ActionUpdate: {sec.RoleSecretary, sec.RoleDirector},
		ActionDelete: {sec.RoleDirector},
	},
	tenant.KindTeacher: {
		ActionRead:   {sec.RoleSecretary, sec.RoleDirector},
		ActionUpdate: {sec.RoleDirector},
		ActionDelete: {sec.RoleDirector},
	},
	tenant.KindCourse: {
		ActionRead:   {sec.RoleSecretary, sec.RoleDirector, sec.RoleTeacher, sec.RoleStudent, sec.RoleTutor},
		ActionUpdate: {sec.RoleDirector, sec.RoleTeacher},
		ActionDelete: {sec.RoleDirector},
	},
	tenant.KindVirtualClassroom: {
		ActionRead:   {sec.RoleDirector, sec.RoleTeacher, sec.RoleStudent},
		ActionUpdate: {sec.RoleDirector, sec.RoleTeacher},
		ActionDelete: {sec.RoleDirector},
	},
	tenant.KindCertificate: {
		ActionRead:   {sec.RoleSecretary, sec.RoleDirector, sec.RoleStudent},
		ActionUpdate: {sec.RoleDirector},
		ActionDelete: {sec.RoleDirector},
	},
}

/*
RequirePermission is the composite guard: build context, check role, check
plan quota, and optionally check a feature gate, short-circuiting on the
first denial. Pass an empty feature string to skip the feature check.
*/
func (evaluator *Evaluator) RequirePermission(ctx context.Context, principal *identity.Identity, inst *tenant.Institution, kind tenant.ResourceKind, action Action, allowedRoles []sec.RoleName, feature string) (*Context, error) {
	abacCtx, err := evaluator.BuildContext(ctx, principal, inst)
	if err != nil {
		return nil, err
	}

	if err := evaluator.CheckRole(ctx, abacCtx, allowedRoles...); err != nil {
		return nil, err
	}
	if err := evaluator.CheckPlanLimit(ctx, abacCtx, kind, action); err != nil {
		return nil, err
	}
	if feature != "" {
		if err := evaluator.CheckFeature(ctx, abacCtx, feature); err != nil {
			return nil, err
		}
	}

	return abacCtx, nil
}

// # Helpers

func (evaluator *Evaluator) currentCount(ctx context.Context, kind tenant.ResourceKind, institutionID string) (int, error) {
	if kind == tenant.KindCertificate {
		return evaluator.counts.MonthlyCount(ctx, kind, institutionID, monthStart(evaluator.now()))
	}
	return evaluator.counts.LiveCount(ctx, kind, institutionID)
}

func (evaluator *Evaluator) denyQuota(ctx context.Context, abacCtx *Context, kind tenant.ResourceKind, reason string, count, limit int) error {
	metrics.RecordDecision(metrics.StagePlanLimit, metrics.OutcomeDenied)
	evaluator.auditor.Record(ctx, audit.Event{
		Name:          audit.EventPlanLimitDenied,
		PrincipalID:   abacCtx.Principal.ID,
		InstitutionID: abacCtx.Institution.ID,
		Details: map[string]any{
			"reason": reason,
			"kind":   string(kind),
			"count":  count,
			"limit":  limit,
		},
	})
	if reason == "limit_reached" {
		return apperr.Forbidden("Plan limit reached for " + string(kind))
	}
	return apperr.Forbidden("Action is not permitted under the current plan")
}
