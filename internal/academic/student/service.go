// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package student

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/scholaris/scholaris/internal/abac"
	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/platform/validate"
	"github.com/scholaris/scholaris/internal/tenant"
	"github.com/scholaris/scholaris/pkg/pagination"
)

// rosterRoles are the roles allowed to manage the roster.
var rosterRoles = []sec.RoleName{sec.RoleAdmin, sec.RoleSecretary, sec.RoleDirector}

type Service struct {
	repo      Repository
	tenants   *tenant.Service
	evaluator *abac.Evaluator
	logger    *slog.Logger
}

func NewService(repo Repository, tenants *tenant.Service, evaluator *abac.Evaluator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		tenants:   tenants,
		evaluator: evaluator,
		logger:    logger,
	}
}

func (service *Service) ListStudents(ctx context.Context, institutionID string, params pagination.Params) ([]*Student, int, error) {
	return service.repo.ListStudents(ctx, institutionID, params.Limit, params.Offset())
}

func (service *Service) GetStudent(ctx context.Context, principal *identity.Identity, id string) (*Student, error) {
	if err := service.tenants.ValidateResourceOwnership(ctx, principal, tenant.KindStudent, id); err != nil {
		return nil, err
	}
	return service.repo.GetStudent(ctx, id)
}

// CreateInput carries the fields accepted when admitting a student.
type CreateInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

/*
CreateStudent admits a student to the roster.

The plan's student limit is checked twice: once up front for a fast
denial, and again inside the inserting transaction so two concurrent
admissions cannot jointly pass a nearly-exhausted quota.
*/
func (service *Service) CreateStudent(ctx context.Context, principal *identity.Identity, inst *tenant.Institution, input CreateInput) (*Student, error) {
	validator := &validate.Validator{}
	validator.Required(FieldFirstName, input.FirstName).MaxLen(FieldFirstName, input.FirstName, 100)
	validator.MaxLen(FieldLastName, input.LastName, 100)
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	abacCtx, err := service.evaluator.RequirePermission(
		ctx, principal, inst, tenant.KindStudent, abac.ActionCreate, rosterRoles, "")
	if err != nil {
		return nil, err
	}

	s := &Student{
		InstitutionID: inst.ID,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Email:         input.Email,
	}
	err = service.repo.CreateStudent(ctx, s, func(ctx context.Context, tx pgx.Tx) error {
		return service.evaluator.CheckPlanLimitTx(ctx, tx, abacCtx, tenant.KindStudent)
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "student_created",
		slog.String("student_id", s.ID), slog.String("institution_id", inst.ID))
	return s, nil
}

// UpdateInput carries the mutable roster fields.
type UpdateInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

func (service *Service) UpdateStudent(ctx context.Context, principal *identity.Identity, id string, input UpdateInput) (*Student, error) {
	validator := &validate.Validator{}
	validator.Required(FieldFirstName, input.FirstName).MaxLen(FieldFirstName, input.FirstName, 100)
	validator.MaxLen(FieldLastName, input.LastName, 100)
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.tenants.ValidateResourceOwnership(ctx, principal, tenant.KindStudent, id); err != nil {
		return nil, err
	}

	s := &Student{
		ID:        id,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
	}
	if err := service.repo.UpdateStudent(ctx, s); err != nil {
		return nil, err
	}

	return service.repo.GetStudent(ctx, id)
}

func (service *Service) DeleteStudent(ctx context.Context, principal *identity.Identity, id string) error {
	if err := service.tenants.ValidateResourceOwnership(ctx, principal, tenant.KindStudent, id); err != nil {
		return err
	}

	if err := service.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}

	service.logger.WarnContext(ctx, "student_deleted", slog.String("student_id", id))
	return nil
}

// DeleteStudents removes a batch, authorized atomically: unless every id
// belongs to the principal's institution the whole batch is refused.
func (service *Service) DeleteStudents(ctx context.Context, principal *identity.Identity, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, apperr.ValidationError("No student ids supplied")
	}

	owned, err := service.tenants.ValidateBulkOwnership(ctx, principal.InstitutionID, tenant.KindStudent, ids)
	if err != nil {
		return 0, err
	}
	if !owned {
		return 0, apperr.Forbidden("One or more students belong to another institution")
	}

	deleted, err := service.repo.DeleteStudents(ctx, principal.InstitutionID, ids)
	if err != nil {
		return 0, err
	}

	service.logger.WarnContext(ctx, "students_bulk_deleted",
		slog.Int("count", deleted), slog.String("institution_id", principal.InstitutionID))
	return deleted, nil
}
