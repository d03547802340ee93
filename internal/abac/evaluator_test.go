// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package abac_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/abac"
	"github.com/scholaris/scholaris/internal/billing/plan"
	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/tenant"
)

// fakePlans serves one plan by id.
type fakePlans struct {
	plans map[string]*plan.Plan
}

func (f *fakePlans) GetPlan(_ context.Context, id string) (*plan.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, apperr.NotFound("Plan")
	}
	return p, nil
}

func (f *fakePlans) GetPlanBySlug(_ context.Context, slug string) (*plan.Plan, error) {
	for _, p := range f.plans {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, apperr.NotFound("Plan")
}

func (f *fakePlans) ListPlans(_ context.Context) ([]*plan.Plan, error) {
	out := make([]*plan.Plan, 0, len(f.plans))
	for _, p := range f.plans {
		out = append(out, p)
	}
	return out, nil
}

// fakeCounts returns fixed counts per kind. monthlyCalls records the window
// arguments MonthlyCount was invoked with.
type fakeCounts struct {
	live         map[tenant.ResourceKind]int
	monthly      map[tenant.ResourceKind]int
	monthlyCalls []time.Time
}

func (f *fakeCounts) LiveCount(_ context.Context, kind tenant.ResourceKind, _ string) (int, error) {
	return f.live[kind], nil
}

func (f *fakeCounts) MonthlyCount(_ context.Context, kind tenant.ResourceKind, _ string, monthStart time.Time) (int, error) {
	f.monthlyCalls = append(f.monthlyCalls, monthStart)
	return f.monthly[kind], nil
}

func (f *fakeCounts) LiveCountTx(_ context.Context, _ pgx.Tx, kind tenant.ResourceKind, _ string) (int, error) {
	return f.live[kind], nil
}

// fakeUsage is an in-memory AI usage ledger.
type fakeUsage struct {
	used map[string]int
}

func (f *fakeUsage) RecordUsage(_ context.Context, _ string, metric string, amount int) error {
	if f.used == nil {
		f.used = map[string]int{}
	}
	f.used[metric] += amount
	return nil
}

func (f *fakeUsage) MonthlyUsage(_ context.Context, _ string, metric string, _ time.Time) (int, error) {
	return f.used[metric], nil
}

func newTestEvaluator(plans *fakePlans, counts *fakeCounts, opts ...abac.EvaluatorOption) *abac.Evaluator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return abac.NewEvaluator(plans, counts, audit.NewRecorder(logger), logger, opts...)
}

func testPrincipal(role sec.RoleName) *identity.Identity {
	return &identity.Identity{ID: "user-1", InstitutionID: "inst-1", RoleName: role, IsActive: true}
}

func testInstitution(planID string) *tenant.Institution {
	inst := &tenant.Institution{ID: "inst-1", Name: "Test", Slug: "test", Status: tenant.StatusActive}
	if planID != "" {
		inst.PlanID = &planID
	}
	return inst
}

func standardPlan() *plan.Plan {
	return &plan.Plan{
		ID:                      "plan-1",
		Slug:                    "standard",
		Name:                    "Standard",
		StudentLimit:            5,
		TeacherLimit:            2,
		CourseLimit:             plan.Unlimited,
		VirtualClassroomLimit:   1,
		CertificateMonthly:      3,
		AITeacherCallsMonthly:   10,
		AIStudentMinutesMonthly: 0,
		Features:                map[string]bool{"exports": true},
	}
}

/*
TestBuildContext verifies plan loading, the nil-argument guard, and the
dangling plan reference degradation.
*/
func TestBuildContext(t *testing.T) {
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": standardPlan()}}
	evaluator := newTestEvaluator(plans, &fakeCounts{})

	// 1. Missing principal or institution
	_, err := evaluator.BuildContext(context.Background(), nil, testInstitution("plan-1"))
	assert.True(t, apperr.IsKind(err, apperr.CodeBadRequest))
	_, err = evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleTeacher), nil)
	assert.True(t, apperr.IsKind(err, apperr.CodeBadRequest))

	// 2. Plan resolves
	abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleTeacher), testInstitution("plan-1"))
	require.NoError(t, err)
	assert.True(t, abacCtx.HasPlan())
	assert.Equal(t, "standard", abacCtx.Plan.Slug)

	// 3. No plan reference
	abacCtx, err = evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleTeacher), testInstitution(""))
	require.NoError(t, err)
	assert.False(t, abacCtx.HasPlan())

	// 4. Dangling plan reference degrades to no plan
	abacCtx, err = evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleTeacher), testInstitution("plan-gone"))
	require.NoError(t, err)
	assert.False(t, abacCtx.HasPlan())
}

/*
TestCheckRole verifies explicit allow-lists with no implicit admin bypass.
*/
func TestCheckRole(t *testing.T) {
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": standardPlan()}}
	evaluator := newTestEvaluator(plans, &fakeCounts{})

	build := func(role sec.RoleName) *abac.Context {
		abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(role), testInstitution("plan-1"))
		require.NoError(t, err)
		return abacCtx
	}

	// 1. Listed role passes
	assert.NoError(t, evaluator.CheckRole(context.Background(), build(sec.RoleTeacher), sec.RoleTeacher, sec.RoleDirector))

	// 2. Unlisted role is refused
	err := evaluator.CheckRole(context.Background(), build(sec.RoleStudent), sec.RoleTeacher, sec.RoleDirector)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))

	// 3. ADMIN gets no implicit pass
	err = evaluator.CheckRole(context.Background(), build(sec.RoleAdmin), sec.RoleTeacher)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
}

/*
TestCheckPlanLimit walks the quota boundary: under, at, and over the limit,
plus the unlimited sentinel and the create-only scope.
*/
func TestCheckPlanLimit(t *testing.T) {
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": standardPlan()}}
	counts := &fakeCounts{live: map[tenant.ResourceKind]int{
		tenant.KindStudent: 4,
		tenant.KindTeacher: 2,
		tenant.KindCourse:  1000000,
	}}
	evaluator := newTestEvaluator(plans, counts)

	abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleAdmin), testInstitution("plan-1"))
	require.NoError(t, err)

	// 1. Under the limit (4 of 5): allowed
	assert.NoError(t, evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindStudent, abac.ActionCreate))

	// 2. At the limit (2 of 2): the next create is denied, inclusively
	err = evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindTeacher, abac.ActionCreate)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
	assert.Contains(t, err.Error(), "teacher")

	// 3. Unlimited sentinel ignores any count
	assert.NoError(t, evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindCourse, abac.ActionCreate))

	// 4. Non-create actions are never quota-gated
	assert.NoError(t, evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindTeacher, abac.ActionRead))
	assert.NoError(t, evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindTeacher, abac.ActionDelete))

	// 5. Unknown kinds are denied, not waved through
	err = evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.ResourceKind("widget"), abac.ActionCreate)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
}

/*
TestCheckPlanLimit_NoPlan verifies that an institution without a plan
cannot create quota-gated resources.
*/
func TestCheckPlanLimit_NoPlan(t *testing.T) {
	evaluator := newTestEvaluator(&fakePlans{}, &fakeCounts{})

	abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleAdmin), testInstitution(""))
	require.NoError(t, err)

	err = evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindStudent, abac.ActionCreate)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
}

/*
TestCheckPlanLimit_CertificateMonthWindow verifies that certificate quota
counts only the current calendar month, via an injected clock.
*/
func TestCheckPlanLimit_CertificateMonthWindow(t *testing.T) {
	current := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": standardPlan()}}
	counts := &fakeCounts{monthly: map[tenant.ResourceKind]int{tenant.KindCertificate: 2}}
	evaluator := newTestEvaluator(plans, counts, abac.WithClock(func() time.Time { return current }))

	abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleAdmin), testInstitution("plan-1"))
	require.NoError(t, err)

	// 1. Two of three issued this month: allowed
	require.NoError(t, evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindCertificate, abac.ActionCreate))

	// 2. The count window opened on the first of the month
	require.Len(t, counts.monthlyCalls, 1)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), counts.monthlyCalls[0])

	// 3. At the monthly cap: denied
	counts.monthly[tenant.KindCertificate] = 3
	err = evaluator.CheckPlanLimit(context.Background(), abacCtx, tenant.KindCertificate, abac.ActionCreate)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
}

/*
TestCheckFeature verifies numeric-derived and map-backed feature gates.
*/
func TestCheckFeature(t *testing.T) {
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": standardPlan()}}
	evaluator := newTestEvaluator(plans, &fakeCounts{})

	abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleTeacher), testInstitution("plan-1"))
	require.NoError(t, err)

	// 1. Positive AI allowance enables the derived feature
	assert.NoError(t, evaluator.CheckFeature(context.Background(), abacCtx, plan.FeatureAITeacher))

	// 2. Zero allowance disables it
	err = evaluator.CheckFeature(context.Background(), abacCtx, plan.FeatureAIStudent)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))

	// 3. Map-backed feature
	assert.NoError(t, evaluator.CheckFeature(context.Background(), abacCtx, "exports"))

	// 4. Absent map key denies
	err = evaluator.CheckFeature(context.Background(), abacCtx, "time_travel")
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))

	// 5. No plan denies everything
	noPlan, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleTeacher), testInstitution(""))
	require.NoError(t, err)
	err = evaluator.CheckFeature(context.Background(), noPlan, "exports")
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
}

/*
TestEvaluateAccess verifies the boolean combinator: admin bypass, closed
kinds, create-needs-plan, and the role allow-lists.
*/
func TestEvaluateAccess(t *testing.T) {
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": standardPlan()}}
	evaluator := newTestEvaluator(plans, &fakeCounts{})

	build := func(role sec.RoleName, planID string) *abac.Context {
		abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(role), testInstitution(planID))
		require.NoError(t, err)
		return abacCtx
	}

	// 1. ADMIN passes everything, even unknown kinds
	assert.True(t, evaluator.EvaluateAccess(build(sec.RoleAdmin, "plan-1"), tenant.ResourceKind("widget"), abac.ActionDelete))

	// 2. Unknown kinds deny for everyone else
	assert.False(t, evaluator.EvaluateAccess(build(sec.RoleDirector, "plan-1"), tenant.ResourceKind("widget"), abac.ActionRead))

	// 3. Creates require a plan
	assert.True(t, evaluator.EvaluateAccess(build(sec.RoleTeacher, "plan-1"), tenant.KindCourse, abac.ActionCreate))
	assert.False(t, evaluator.EvaluateAccess(build(sec.RoleTeacher, ""), tenant.KindCourse, abac.ActionCreate))

	// 4. Role allow-lists on non-create actions
	assert.True(t, evaluator.EvaluateAccess(build(sec.RoleStudent, "plan-1"), tenant.KindCourse, abac.ActionRead))
	assert.False(t, evaluator.EvaluateAccess(build(sec.RoleStudent, "plan-1"), tenant.KindCourse, abac.ActionDelete))
	assert.True(t, evaluator.EvaluateAccess(build(sec.RoleDirector, "plan-1"), tenant.KindStudent, abac.ActionDelete))
	assert.False(t, evaluator.EvaluateAccess(build(sec.RoleSecretary, "plan-1"), tenant.KindStudent, abac.ActionDelete))
}

/*
TestRequirePermission verifies the composite guard short-circuits in order:
role, then quota, then feature.
*/
func TestRequirePermission(t *testing.T) {
	p := standardPlan()
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": p}}
	counts := &fakeCounts{live: map[tenant.ResourceKind]int{tenant.KindStudent: 5}}
	evaluator := newTestEvaluator(plans, counts)

	roster := []sec.RoleName{sec.RoleAdmin, sec.RoleSecretary}

	// 1. Role denial comes first
	_, err := evaluator.RequirePermission(context.Background(), testPrincipal(sec.RoleStudent), testInstitution("plan-1"),
		tenant.KindStudent, abac.ActionCreate, roster, "")
	require.Error(t, err)
	assert.Equal(t, "Role is not permitted to perform this action", err.Error())

	// 2. Quota denial next
	_, err = evaluator.RequirePermission(context.Background(), testPrincipal(sec.RoleSecretary), testInstitution("plan-1"),
		tenant.KindStudent, abac.ActionCreate, roster, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Plan limit reached")

	// 3. Feature denial last
	counts.live[tenant.KindStudent] = 0
	_, err = evaluator.RequirePermission(context.Background(), testPrincipal(sec.RoleSecretary), testInstitution("plan-1"),
		tenant.KindStudent, abac.ActionCreate, roster, "time_travel")
	require.Error(t, err)
	assert.Equal(t, "Feature is not included in the current plan", err.Error())

	// 4. Full pass returns the built context
	abacCtx, err := evaluator.RequirePermission(context.Background(), testPrincipal(sec.RoleSecretary), testInstitution("plan-1"),
		tenant.KindStudent, abac.ActionCreate, roster, "exports")
	require.NoError(t, err)
	assert.True(t, abacCtx.HasPlan())
}

/*
TestConsumeAIUsage verifies allowance arithmetic, the feature gate, and the
unlimited sentinel.
*/
func TestConsumeAIUsage(t *testing.T) {
	p := standardPlan() // 10 teacher calls, 0 student minutes
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": p}}
	evaluator := newTestEvaluator(plans, &fakeCounts{})
	usage := &fakeUsage{}

	abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleTeacher), testInstitution("plan-1"))
	require.NoError(t, err)

	// 1. Spend within the allowance
	require.NoError(t, evaluator.ConsumeAIUsage(context.Background(), abacCtx, usage, abac.MetricAITeacherCalls, 6))
	assert.Equal(t, 6, usage.used[abac.MetricAITeacherCalls])

	// 2. Overdraw is denied before recording
	err = evaluator.ConsumeAIUsage(context.Background(), abacCtx, usage, abac.MetricAITeacherCalls, 5)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
	assert.Equal(t, 6, usage.used[abac.MetricAITeacherCalls])

	// 3. Exactly exhausting the allowance is allowed
	require.NoError(t, evaluator.ConsumeAIUsage(context.Background(), abacCtx, usage, abac.MetricAITeacherCalls, 4))

	// 4. Zero allowance means the feature gate refuses
	err = evaluator.ConsumeAIUsage(context.Background(), abacCtx, usage, abac.MetricAIStudentMinutes, 1)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))

	// 5. Invalid inputs
	err = evaluator.ConsumeAIUsage(context.Background(), abacCtx, usage, abac.MetricAITeacherCalls, 0)
	assert.True(t, apperr.IsKind(err, apperr.CodeValidation))
	err = evaluator.ConsumeAIUsage(context.Background(), abacCtx, usage, "phlogiston", 1)
	assert.True(t, apperr.IsKind(err, apperr.CodeValidation))

	// 6. Unlimited allowance skips the arithmetic entirely
	p.AITeacherCallsMonthly = plan.Unlimited
	require.NoError(t, evaluator.ConsumeAIUsage(context.Background(), abacCtx, usage, abac.MetricAITeacherCalls, 1000000))
}

/*
TestQuotaReport verifies the consolidated quota view.
*/
func TestQuotaReport(t *testing.T) {
	plans := &fakePlans{plans: map[string]*plan.Plan{"plan-1": standardPlan()}}
	counts := &fakeCounts{
		live:    map[tenant.ResourceKind]int{tenant.KindStudent: 3},
		monthly: map[tenant.ResourceKind]int{tenant.KindCertificate: 1},
	}
	evaluator := newTestEvaluator(plans, counts)
	usage := &fakeUsage{used: map[string]int{abac.MetricAITeacherCalls: 4}}

	abacCtx, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleAdmin), testInstitution("plan-1"))
	require.NoError(t, err)

	report, err := evaluator.QuotaReport(context.Background(), abacCtx, usage)
	require.NoError(t, err)

	assert.Equal(t, "standard", report.Plan)

	students := report.Resources[string(tenant.KindStudent)]
	assert.Equal(t, abac.QuotaEntry{Limit: 5, Used: 3, Remaining: 2}, students)

	courses := report.Resources[string(tenant.KindCourse)]
	assert.True(t, courses.Unlimited)
	assert.Equal(t, plan.Unlimited, courses.Remaining)

	teacherAI := report.AIUsage[abac.MetricAITeacherCalls]
	assert.Equal(t, abac.QuotaEntry{Limit: 10, Used: 4, Remaining: 6}, teacherAI)

	// No plan: the report is refused outright
	noPlan, err := evaluator.BuildContext(context.Background(), testPrincipal(sec.RoleAdmin), testInstitution(""))
	require.NoError(t, err)
	_, err = evaluator.QuotaReport(context.Background(), noPlan, usage)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
}
