// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package tenant

import (
	"context"
	"log/slog"

	"github.com/scholaris/scholaris/internal/iam/identity"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/metrics"
	"github.com/scholaris/scholaris/internal/platform/validate"
	"github.com/scholaris/scholaris/pkg/pagination"
	"github.com/scholaris/scholaris/pkg/slug"
)

// Denial reasons recorded in audit events.
const (
	reasonNoPrincipal         = "no_principal"
	reasonInstitutionMismatch = "institution_mismatch"
	reasonInstitutionInactive = "institution_inactive"
	reasonUnknownKind         = "unknown_resource_kind"
	reasonResourceForeign     = "resource_foreign_institution"
	reasonBulkPartial         = "bulk_partial_ownership"
)

type Service struct {
	repo      Repository
	ownership OwnershipRepository
	auditor   *audit.Recorder
	logger    *slog.Logger
}

func NewService(repo Repository, ownership OwnershipRepository, auditor *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		ownership: ownership,
		auditor:   auditor,
		logger:    logger,
	}
}

// # Institution CRUD

func (service *Service) GetInstitution(ctx context.Context, id string) (*Institution, error) {
	return service.repo.GetInstitution(ctx, id)
}

func (service *Service) GetInstitutionBySlug(ctx context.Context, s string) (*Institution, error) {
	return service.repo.GetInstitutionBySlug(ctx, s)
}

func (service *Service) ListInstitutions(ctx context.Context, params pagination.Params) ([]*Institution, int, error) {
	return service.repo.ListInstitutions(ctx, params.Limit, params.Offset())
}

// CreateInput carries the fields accepted when provisioning an institution.
type CreateInput struct {
	Name   string  `json:"name"`
	PlanID *string `json:"plan_id"`
}

func (service *Service) CreateInstitution(ctx context.Context, input CreateInput) (*Institution, error) {
	validator := &validate.Validator{}
	validator.Required(FieldName, input.Name).MaxLen(FieldName, input.Name, 200)
	if input.PlanID != nil {
		validator.UUID(FieldPlanID, *input.PlanID)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	inst := &Institution{
		Name:   input.Name,
		Slug:   slug.From(input.Name),
		Status: StatusActive,
		PlanID: input.PlanID,
	}
	if err := service.repo.CreateInstitution(ctx, inst); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "institution_created",
		slog.String("institution_id", inst.ID), slog.String("slug", inst.Slug))
	return inst, nil
}

func (service *Service) UpdateInstitutionStatus(ctx context.Context, id, status string) error {
	validator := &validate.Validator{}
	validator.Required(FieldStatus, status).
		OneOf(FieldStatus, status, StatusActive, StatusSuspended, StatusPending)
	if err := validator.Err(); err != nil {
		return err
	}

	if err := service.repo.UpdateInstitutionStatus(ctx, id, status); err != nil {
		return err
	}

	service.logger.WarnContext(ctx, "institution_status_changed",
		slog.String("institution_id", id), slog.String("status", status))
	return nil
}

// # Tenant Resolution

/*
ResolveTenant binds the request to exactly one institution.

The target is taken from the path parameter when present, else it defaults
to the principal's home institution. The check is strict equality: no
cross-tenant access, even for same-role users in different institutions.

Returns the full tenant record on success. Failures:
  - BadRequest when no principal has been resolved (ordering dependency)
  - Forbidden when the target differs from the principal's institution
  - BadRequest when the target institution does not exist
  - Forbidden when the institution is not active
*/
func (service *Service) ResolveTenant(ctx context.Context, principal *identity.Identity, targetID string) (*Institution, error) {
	if principal == nil {
		return nil, apperr.BadRequest("Tenant resolution requires an authenticated principal")
	}

	if targetID == "" {
		targetID = principal.InstitutionID
	}

	if targetID != principal.InstitutionID {
		service.denyTenant(ctx, principal, targetID, reasonInstitutionMismatch)
		return nil, apperr.Forbidden("Access to this institution is not permitted")
	}

	inst, err := service.repo.GetInstitution(ctx, targetID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return nil, apperr.BadRequest("Institution does not exist")
		}
		return nil, err
	}

	if !inst.IsActive() {
		service.denyTenant(ctx, principal, targetID, reasonInstitutionInactive)
		return nil, apperr.Forbidden("Institution is not active")
	}

	metrics.RecordDecision(metrics.StageTenant, metrics.OutcomeAllowed)
	return inst, nil
}

/*
ValidateResourceOwnership checks that the resource row's institution equals
the given institution.

This is the tenant-isolation boundary, enforced uniformly across all
resource kinds. Failures:
  - Forbidden for kinds outside the closed enum (fail closed)
  - BadRequest when the resource does not exist
  - Forbidden when the owning institution differs
*/
func (service *Service) ValidateResourceOwnership(ctx context.Context, principal *identity.Identity, kind ResourceKind, resourceID string) error {
	if principal == nil {
		return apperr.BadRequest("Ownership validation requires an authenticated principal")
	}
	if !kind.IsValid() {
		service.denyResource(ctx, principal, kind, resourceID, reasonUnknownKind)
		return apperr.Forbidden("Unknown resource kind")
	}

	owner, err := service.ownership.ResourceInstitution(ctx, kind, resourceID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return apperr.BadRequest(resourceLabel(kind) + " does not exist")
		}
		return err
	}

	if owner != principal.InstitutionID {
		service.denyResource(ctx, principal, kind, resourceID, reasonResourceForeign)
		return apperr.Forbidden("Resource belongs to another institution")
	}

	metrics.RecordDecision(metrics.StageTenant, metrics.OutcomeAllowed)
	return nil
}

/*
ValidateBulkOwnership reports whether every id in the batch belongs to the
institution, using a single count query so bulk operations are authorized
atomically rather than per row.

Duplicate ids are collapsed before counting. An empty batch is vacuously
owned.
*/
func (service *Service) ValidateBulkOwnership(ctx context.Context, institutionID string, kind ResourceKind, ids []string) (bool, error) {
	if !kind.IsValid() {
		return false, nil
	}

	unique := dedupe(ids)
	if len(unique) == 0 {
		return true, nil
	}

	count, err := service.ownership.CountOwned(ctx, kind, unique, institutionID)
	if err != nil {
		return false, err
	}

	if count != len(unique) {
		metrics.RecordDecision(metrics.StageTenant, metrics.OutcomeDenied)
		service.auditor.Record(ctx, audit.Event{
			Name:          audit.EventTenantAccessDenied,
			InstitutionID: institutionID,
			Details: map[string]any{
				"reason": reasonBulkPartial,
				"kind":   string(kind),
				"batch":  len(unique),
				"owned":  count,
			},
		})
		return false, nil
	}

	return true, nil
}

// # Helpers

func (service *Service) denyTenant(ctx context.Context, principal *identity.Identity, targetID, reason string) {
	metrics.RecordDecision(metrics.StageTenant, metrics.OutcomeDenied)
	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventTenantAccessDenied,
		PrincipalID:   principal.ID,
		InstitutionID: principal.InstitutionID,
		Details: map[string]any{
			"reason": reason,
			"target": targetID,
		},
	})
}

func (service *Service) denyResource(ctx context.Context, principal *identity.Identity, kind ResourceKind, resourceID, reason string) {
	metrics.RecordDecision(metrics.StageTenant, metrics.OutcomeDenied)
	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventResourceAccessDenied,
		PrincipalID:   principal.ID,
		InstitutionID: principal.InstitutionID,
		Details: map[string]any{
			"reason":      reason,
			"kind":        string(kind),
			"resource_id": resourceID,
		},
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
