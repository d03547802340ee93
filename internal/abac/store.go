// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package abac

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scholaris/scholaris/internal/tenant"
)

// CountRepository provides the live resource counts quota checks compare
// against plan limits.
type CountRepository interface {
	// LiveCount counts all rows of the kind owned by the institution.
	LiveCount(ctx context.Context, kind tenant.ResourceKind, institutionID string) (int, error)

	// MonthlyCount counts rows of the kind created by the institution at or
	// after monthStart. Used for kinds with calendar-month quotas.
	MonthlyCount(ctx context.Context, kind tenant.ResourceKind, institutionID string, monthStart time.Time) (int, error)

	// LiveCountTx is LiveCount running inside a caller-owned transaction,
	// so the quota re-check and the insert see the same snapshot.
	LiveCountTx(ctx context.Context, tx pgx.Tx, kind tenant.ResourceKind, institutionID string) (int, error)
}

// AI usage metric names.
const (
	MetricAITeacherCalls   = "ai_teacher_calls"
	MetricAIStudentMinutes = "ai_student_minutes"
)

// UsageRepository accumulates monthly AI usage per institution.
type UsageRepository interface {
	RecordUsage(ctx context.Context, institutionID, metric string, amount int) error
	MonthlyUsage(ctx context.Context, institutionID, metric string, monthStart time.Time) (int, error)
}
