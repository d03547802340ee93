// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package role

import (
	"context"
	"log/slog"

	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/platform/validate"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (service *Service) ListRoles(ctx context.Context, institutionID string) ([]*Role, error) {
	return service.repo.ListRoles(ctx, institutionID)
}

func (service *Service) ListAssignments(ctx context.Context, principalID string) ([]*Assignment, error) {
	return service.repo.ListAssignments(ctx, principalID)
}

// AssignInput carries the fields accepted when granting a role.
type AssignInput struct {
	PrincipalID string `json:"principal_id"`
	RoleName    string `json:"role_name"`
	Primary     bool   `json:"primary"`
}

// Assign grants the named role to a principal within the institution.
func (service *Service) Assign(ctx context.Context, institutionID string, input AssignInput) (*Assignment, error) {
	validator := &validate.Validator{}
	validator.Required(FieldPrincipalID, input.PrincipalID).UUID(FieldPrincipalID, input.PrincipalID)
	validator.Required(FieldName, input.RoleName).
		Custom(FieldName, !sec.RoleName(input.RoleName).IsValid(), "unknown role name")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	r, err := service.repo.FindRoleByName(ctx, sec.RoleName(input.RoleName), institutionID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return nil, apperr.NotFound("Role")
		}
		return nil, err
	}

	assignment, err := service.repo.AssignRole(ctx, input.PrincipalID, r.ID, input.Primary)
	if err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "role_assigned",
		slog.String("principal_id", input.PrincipalID),
		slog.String("role", input.RoleName),
		slog.Bool("primary", assignment.IsPrimary),
	)
	return assignment, nil
}

// SetPrimary promotes an assignment to be the principal's active role.
func (service *Service) SetPrimary(ctx context.Context, principalID, assignmentID string) error {
	if err := service.repo.SetPrimary(ctx, principalID, assignmentID); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "primary_role_changed",
		slog.String("principal_id", principalID),
		slog.String("assignment_id", assignmentID),
	)
	return nil
}
