// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package course

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/scholaris/scholaris/internal/abac"
	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/platform/validate"
	"github.com/scholaris/scholaris/internal/tenant"
	"github.com/scholaris/scholaris/pkg/pagination"
	"github.com/scholaris/scholaris/pkg/slug"
)

// catalogRoles are the roles allowed to author the course catalog.
var catalogRoles = []sec.RoleName{sec.RoleAdmin, sec.RoleDirector, sec.RoleTeacher}

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

func (service *Service) ListCourses(ctx context.Context, institutionID string, params pagination.Params) ([]*Course, int, error) {
	return service.repo.ListCourses(ctx, institutionID, params.Limit, params.Offset())
}

func (service *Service) GetCourse(ctx context.Context, principal *identity.Identity, id string) (*Course, error) {
	if err := service.tenants.ValidateResourceOwnership(ctx, principal, tenant.KindCourse, id); err != nil {
		return nil, err
	}
	return service.repo.GetCourse(ctx, id)
}

// CreateInput carries the fields accepted when authoring a course.
type CreateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CreateCourse authors a new unpublished course. The plan's course limit
// is re-checked inside the inserting transaction.
func (service *Service) CreateCourse(ctx context.Context, principal *identity.Identity, inst *tenant.Institution, input CreateInput) (*Course, error) {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, 200)
	validator.MaxLen(FieldDescription, input.Description, 5000)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	abacCtx, err := service.evaluator.RequirePermission(
		ctx, principal, inst, tenant.KindCourse, abac.ActionCreate, catalogRoles, "")
	if err != nil {
		return nil, err
	}

	c := &Course{
		InstitutionID: inst.ID,
		Title:         input.Title,
		Slug:          slug.From(input.Title),
		Description:   input.Description,
	}
	err = service.repo.CreateCourse(ctx, c, func(ctx context.Context, tx pgx.Tx) error {
		return service.evaluator.CheckPlanLimitTx(ctx, tx, abacCtx, tenant.KindCourse)
	})
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "course_created",
		slog.String("course_id", c.ID), slog.String("institution_id", inst.ID))
	return c, nil
}

// UpdateInput carries the mutable catalog fields.
type UpdateInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (service *Service) UpdateCourse(ctx context.Context, principal *identity.Identity, id string, input UpdateInput) (*Course, error) {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).MaxLen(FieldTitle, input.Title, 200)
	validator.MaxLen(FieldDescription, input.Description, 5000)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if err := service.tenants.ValidateResourceOwnership(ctx, principal, tenant.KindCourse, id); err != nil {
		return nil, err
	}

	c := &Course{
		ID:          id,
		Title:       input.Title,
		Slug:        slug.From(input.Title),
		Description: input.Description,
	}
	if err := service.repo.UpdateCourse(ctx, c); err != nil {
		return nil, err
	}

	return service.repo.GetCourse(ctx, id)
}

func (service *Service) SetPublished(ctx context.Context, principal *identity.Identity, id string, published bool) (*Course, error) {
	if err := service.tenants.ValidateResourceOwnership(ctx, principal, tenant.KindCourse, id); err != nil {
		return nil, err
	}

	c, err := service.repo.SetPublished(ctx, id, published)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "course_publish_toggled",
		slog.String("course_id", id), slog.Bool("published", published))
	return c, nil
}

func (service *Service) DeleteCourse(ctx context.Context, principal *identity.Identity, id string) error {
	if err := service.tenants.ValidateResourceOwnership(ctx, principal, tenant.KindCourse, id); err != nil {
		return err
	}

	if err := service.repo.DeleteCourse(ctx, id); err != nil {
		return err
	}

	service.logger.WarnContext(ctx, "course_deleted", slog.String("course_id", id))
	return nil
}
