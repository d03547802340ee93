// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package tenant

import "context"

// Repository is the persistence contract for institutions.
type Repository interface {
	GetInstitution(ctx context.Context, id string) (*Institution, error)
	GetInstitutionBySlug(ctx context.Context, slug string) (*Institution, error)
	ListInstitutions(ctx context.Context, limit, offset int) ([]*Institution, int, error)
	CreateInstitution(ctx context.Context, inst *Institution) error
	UpdateInstitution(ctx context.Context, inst *Institution) error
	UpdateInstitutionStatus(ctx context.Context, id, status string) error
}

// OwnershipRepository answers which institution owns a resource row.
type OwnershipRepository interface {
	// ResourceInstitution returns the owning institution id for the resource,
	// or a NotFound-classified error when the row does not exist. Callers
	// must validate the kind before calling.
	ResourceInstitution(ctx context.Context, kind ResourceKind, resourceID string) (string, error)

	// CountOwned returns how many of the given ids exist AND belong to the
	// institution, in a single query.
	CountOwned(ctx context.Context, kind ResourceKind, ids []string, institutionID string) (int, error)
}
