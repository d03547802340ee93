// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package student_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholaris/scholaris/internal/abac"
	"github.com/scholaris/scholaris/internal/academic/student"
	"github.com/scholaris/scholaris/internal/billing/plan"
	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/tenant"
)

// # Fakes

// fakeRepository stores students in memory. CreateStudent honors the
// in-transaction quota check contract: the check runs first and a failure
// aborts the insert.
type fakeRepository struct {
	students   map[string]*student.Student
	quotaRuns  int
	nextSerial int

	// beforeQuota simulates a rival insert committing between the advisory
	// quota check and this transaction's re-check.
	beforeQuota func()
}

func (r *fakeRepository) ListStudents(_ context.Context, institutionID string, _, _ int) ([]*student.Student, int, error) {
	var out []*student.Student
	for _, s := range r.students {
		if s.InstitutionID == institutionID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (r *fakeRepository) GetStudent(_ context.Context, id string) (*student.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, apperr.NotFound("Student")
	}
	return s, nil
}

func (r *fakeRepository) CreateStudent(ctx context.Context, s *student.Student, quotaCheck student.QuotaCheck) error {
	if quotaCheck != nil {
		r.quotaRuns++
		if r.beforeQuota != nil {
			r.beforeQuota()
		}
		if err := quotaCheck(ctx, nil); err != nil {
			return err
		}
	}
	r.nextSerial++
	s.ID = fmt.Sprintf("student-%d", r.nextSerial)
	r.students[s.ID] = s
	return nil
}

func (r *fakeRepository) UpdateStudent(_ context.Context, s *student.Student) error {
	existing, ok := r.students[s.ID]
	if !ok {
		return apperr.NotFound("Student")
	}
	existing.FirstName = s.FirstName
	existing.LastName = s.LastName
	existing.Email = s.Email
	return nil
}

func (r *fakeRepository) DeleteStudent(_ context.Context, id string) error {
	if _, ok := r.students[id]; !ok {
		return apperr.NotFound("Student")
	}
	delete(r.students, id)
	return nil
}

func (r *fakeRepository) DeleteStudents(_ context.Context, institutionID string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if s, ok := r.students[id]; ok && s.InstitutionID == institutionID {
			delete(r.students, id)
			deleted++
		}
	}
	return deleted, nil
}

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

func (f *fakePlans) GetPlanBySlug(_ context.Context, _ string) (*plan.Plan, error) {
	return nil, apperr.NotFound("Plan")
}

func (f *fakePlans) ListPlans(_ context.Context) ([]*plan.Plan, error) { return nil, nil }

// fakeCounts returns a mutable roster headcount for every kind.
type fakeCounts struct {
	live int
}

func (f *fakeCounts) LiveCount(_ context.Context, _ tenant.ResourceKind, _ string) (int, error) {
	return f.live, nil
}

func (f *fakeCounts) MonthlyCount(_ context.Context, _ tenant.ResourceKind, _ string, _ time.Time) (int, error) {
	return 0, nil
}

func (f *fakeCounts) LiveCountTx(_ context.Context, _ pgx.Tx, _ tenant.ResourceKind, _ string) (int, error) {
	return f.live, nil
}

// fakeInstitutions serves the single test institution.
type fakeInstitutions struct {
	institutions map[string]*tenant.Institution
}

func (r *fakeInstitutions) GetInstitution(_ context.Context, id string) (*tenant.Institution, error) {
	inst, ok := r.institutions[id]
	if !ok {
		return nil, apperr.NotFound("Institution")
	}
	return inst, nil
}

func (r *fakeInstitutions) GetInstitutionBySlug(_ context.Context, _ string) (*tenant.Institution, error) {
	return nil, apperr.NotFound("Institution")
}

func (r *fakeInstitutions) ListInstitutions(_ context.Context, _, _ int) ([]*tenant.Institution, int, error) {
	return nil, 0, nil
}

func (r *fakeInstitutions) CreateInstitution(_ context.Context, _ *tenant.Institution) error {
	return nil
}

func (r *fakeInstitutions) UpdateInstitution(_ context.Context, _ *tenant.Institution) error {
	return nil
}

func (r *fakeInstitutions) UpdateInstitutionStatus(_ context.Context, _, _ string) error { return nil }

// fakeOwnership maps student ids to owning institutions.
type fakeOwnership struct {
	owners map[string]string
}

func (o *fakeOwnership) ResourceInstitution(_ context.Context, _ tenant.ResourceKind, resourceID string) (string, error) {
	owner, ok := o.owners[resourceID]
	if !ok {
		return "", apperr.NotFound("Resource")
	}
	return owner, nil
}

func (o *fakeOwnership) CountOwned(_ context.Context, _ tenant.ResourceKind, ids []string, institutionID string) (int, error) {
	count := 0
	for _, id := range ids {
		if o.owners[id] == institutionID {
			count++
		}
	}
	return count, nil
}

// # Fixture

type fixture struct {
	service *student.Service
	repo    *fakeRepository
	counts  *fakeCounts
	owners  *fakeOwnership
	inst    *tenant.Institution
}

func newFixture(t *testing.T, studentLimit int) *fixture {
	t.Helper()

	planID := "plan-1"
	inst := &tenant.Institution{
		ID:     "inst-1",
		Name:   "Academy",
		Slug:   "academy",
		Status: tenant.StatusActive,
		PlanID: &planID,
	}

	f := &fixture{
		repo:   &fakeRepository{students: map[string]*student.Student{}},
		counts: &fakeCounts{},
		owners: &fakeOwnership{owners: map[string]string{}},
		inst:   inst,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor := audit.NewRecorder(logger)

	plans := &fakePlans{plans: map[string]*plan.Plan{
		planID: {ID: planID, Slug: "starter", Name: "Starter", StudentLimit: studentLimit},
	}}
	institutions := &fakeInstitutions{institutions: map[string]*tenant.Institution{inst.ID: inst}}

	tenants := tenant.NewService(institutions, f.owners, auditor, logger)
	evaluator := abac.NewEvaluator(plans, f.counts, auditor, logger)
	f.service = student.NewService(f.repo, tenants, evaluator, logger)
	return f
}

func secretary() *identity.Identity {
	return &identity.Identity{
		ID:            "principal-1",
		Email:         "secretary@example.com",
		InstitutionID: "inst-1",
		RoleID:        "role-secretary",
		RoleName:      sec.RoleSecretary,
		IsActive:      true,
	}
}

// # Admission

/*
TestCreateStudent verifies the happy path and that the quota re-check runs
inside the creating transaction.
*/
func TestCreateStudent(t *testing.T) {
	f := newFixture(t, 5)
	f.counts.live = 3

	s, err := f.service.CreateStudent(context.Background(), secretary(), f.inst, student.CreateInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "inst-1", s.InstitutionID)
	assert.Equal(t, 1, f.repo.quotaRuns)
	assert.Len(t, f.repo.students, 1)
}

func TestCreateStudent_Validation(t *testing.T) {
	f := newFixture(t, 5)

	_, err := f.service.CreateStudent(context.Background(), secretary(), f.inst, student.CreateInput{
		FirstName: "Ada",
		Email:     "not-an-email",
	})
	assert.True(t, apperr.IsKind(err, apperr.CodeValidation))
	assert.Empty(t, f.repo.students)
}

/*
TestCreateStudent_RoleDenied verifies the role gate runs before anything
touches the repository.
*/
func TestCreateStudent_RoleDenied(t *testing.T) {
	f := newFixture(t, 5)

	teacher := secretary()
	teacher.RoleName = sec.RoleTeacher

	_, err := f.service.CreateStudent(context.Background(), teacher, f.inst, student.CreateInput{
		FirstName: "Ada",
		Email:     "ada@example.com",
	})
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
	assert.Zero(t, f.repo.quotaRuns)
	assert.Empty(t, f.repo.students)
}

/*
TestCreateStudent_QuotaExhausted verifies the advisory check denies a full
roster before the transaction opens.
*/
func TestCreateStudent_QuotaExhausted(t *testing.T) {
	f := newFixture(t, 5)
	f.counts.live = 5

	_, err := f.service.CreateStudent(context.Background(), secretary(), f.inst, student.CreateInput{
		FirstName: "Ada",
		Email:     "ada@example.com",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
	assert.Contains(t, err.Error(), "Plan limit reached")

	// The transaction never opened.
	assert.Zero(t, f.repo.quotaRuns)
	assert.Empty(t, f.repo.students)
}

/*
TestCreateStudent_TxRecheck verifies a concurrent admission landing between
the advisory check and the insert is caught by the in-transaction re-check.
*/
func TestCreateStudent_TxRecheck(t *testing.T) {
	f := newFixture(t, 5)
	f.counts.live = 4
	f.repo.beforeQuota = func() { f.counts.live = 5 }

	_, err := f.service.CreateStudent(context.Background(), secretary(), f.inst, student.CreateInput{
		FirstName: "Ada",
		Email:     "ada@example.com",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
	assert.Empty(t, f.repo.students)
}

// # Ownership

func TestGetStudent_Ownership(t *testing.T) {
	f := newFixture(t, 5)
	f.repo.students["s-1"] = &student.Student{ID: "s-1", InstitutionID: "inst-1"}
	f.owners.owners["s-1"] = "inst-1"
	f.owners.owners["s-2"] = "inst-2"

	s, err := f.service.GetStudent(context.Background(), secretary(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", s.ID)

	_, err = f.service.GetStudent(context.Background(), secretary(), "s-2")
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
}

/*
TestDeleteStudents verifies bulk removal is all-or-nothing on ownership.
*/
func TestDeleteStudents(t *testing.T) {
	f := newFixture(t, 5)
	f.repo.students["s-1"] = &student.Student{ID: "s-1", InstitutionID: "inst-1"}
	f.repo.students["s-2"] = &student.Student{ID: "s-2", InstitutionID: "inst-1"}
	f.owners.owners["s-1"] = "inst-1"
	f.owners.owners["s-2"] = "inst-1"
	f.owners.owners["s-3"] = "inst-2"

	// 1. Empty batch
	_, err := f.service.DeleteStudents(context.Background(), secretary(), nil)
	assert.True(t, apperr.IsKind(err, apperr.CodeValidation))

	// 2. A foreign id poisons the whole batch
	_, err = f.service.DeleteStudents(context.Background(), secretary(), []string{"s-1", "s-3"})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.CodeForbidden))
	assert.Equal(t, "One or more students belong to another institution", err.Error())
	assert.Len(t, f.repo.students, 2)

	// 3. Fully owned batch succeeds
	deleted, err := f.service.DeleteStudents(context.Background(), secretary(), []string{"s-1", "s-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Empty(t, f.repo.students)
}
