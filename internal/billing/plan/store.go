// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package plan

import "context"

type Repository interface {
	GetPlan(ctx context.Context, id string) (*Plan, error)
	GetPlanBySlug(ctx context.Context, slug string) (*Plan, error)
	ListPlans(ctx context.Context) ([]*Plan, error)
}
