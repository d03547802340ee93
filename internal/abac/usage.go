// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package abac

import (
	"context"

	"github.com/scholaris/scholaris/internal/billing/plan"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/tenant"
)

// QuotaEntry reports one resource kind's consumption against its plan limit.
type QuotaEntry struct {
	Limit     int  `json:"limit"`
	Used      int  `json:"used"`
	Remaining int  `json:"remaining"`
	Unlimited bool `json:"unlimited"`
}

// QuotaReport is the full quota picture for one institution.
type QuotaReport struct {
	Plan      string                `json:"plan"`
	Resources map[string]QuotaEntry `json:"resources"`
	AIUsage   map[string]QuotaEntry `json:"ai_usage"`
}

// QuotaReport computes current consumption for every quota-gated resource
// kind plus the monthly AI allowances.
func (evaluator *Evaluator) QuotaReport(ctx context.Context, abacCtx *Context, usage UsageRepository) (*QuotaReport, error) {
	if !abacCtx.HasPlan() {
		return nil, apperr.Forbidden("Institution has no subscription plan")
	}

	report := &QuotaReport{
		Plan:      abacCtx.Plan.Slug,
		Resources: make(map[string]QuotaEntry, len(tenant.KnownKinds)),
		AIUsage:   make(map[string]QuotaEntry, 2),
	}

	for _, kind := range tenant.KnownKinds {
		limit, ok := limitFor(abacCtx.Plan, kind)
		if !ok {
			continue
		}

		used, err := evaluator.currentCount(ctx, kind, abacCtx.Institution.ID)
		if err != nil {
			return nil, err
		}
		report.Resources[string(kind)] = newQuotaEntry(limit, used)
	}

	window := monthStart(evaluator.now())
	aiAllowances := map[string]int{
		MetricAITeacherCalls:   abacCtx.Plan.AITeacherCallsMonthly,
		MetricAIStudentMinutes: abacCtx.Plan.AIStudentMinutesMonthly,
	}
	for metric, allowance := range aiAllowances {
		used, err := usage.MonthlyUsage(ctx, abacCtx.Institution.ID, metric, window)
		if err != nil {
			return nil, err
		}
		report.AIUsage[metric] = newQuotaEntry(allowance, used)
	}

	return report, nil
}

/*
ConsumeAIUsage checks the feature gate and the remaining monthly allowance
for an AI metric, then records the spend.

The metric decides the gate: teacher calls require the ai_teacher feature,
student minutes require ai_student. Exhausted allowances deny before
anything is recorded.
*/
func (evaluator *Evaluator) ConsumeAIUsage(ctx context.Context, abacCtx *Context, usage UsageRepository, metric string, amount int) error {
	if amount <= 0 {
		return apperr.ValidationError("Usage amount must be positive")
	}

	var feature string
	var allowance int
	switch metric {
	case MetricAITeacherCalls:
		feature = plan.FeatureAITeacher
		if abacCtx.HasPlan() {
			allowance = abacCtx.Plan.AITeacherCallsMonthly
		}
	case MetricAIStudentMinutes:
		feature = plan.FeatureAIStudent
		if abacCtx.HasPlan() {
			allowance = abacCtx.Plan.AIStudentMinutesMonthly
		}
	default:
		return apperr.ValidationError("Unknown usage metric")
	}

	if err := evaluator.CheckFeature(ctx, abacCtx, feature); err != nil {
		return err
	}

	if allowance != plan.Unlimited {
		used, err := usage.MonthlyUsage(ctx, abacCtx.Institution.ID, metric, monthStart(evaluator.now()))
		if err != nil {
			return err
		}
		if used+amount > allowance {
			return apperr.Forbidden("Monthly allowance exhausted for " + metric)
		}
	}

	return usage.RecordUsage(ctx, abacCtx.Institution.ID, metric, amount)
}

func newQuotaEntry(limit, used int) QuotaEntry {
	entry := QuotaEntry{Limit: limit, Used: used}
	if limit == plan.Unlimited {
		entry.Unlimited = true
		entry.Remaining = plan.Unlimited
		return entry
	}

	entry.Remaining = limit - used
	if entry.Remaining < 0 {
		entry.Remaining = 0
	}
	return entry
}
