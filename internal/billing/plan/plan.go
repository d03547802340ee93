// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

// Package plan holds the subscription plans that drive quota and feature
// decisions. Plans are read-mostly reference data, seeded by migrations and
// edited out-of-band.
package plan

import "time"

// Unlimited is the sentinel meaning a numeric limit is not enforced.
// Every other non-negative value is a hard cap.
const Unlimited = -1

// Feature names derived from numeric plan fields rather than the free-form
// features map.
const (
	FeatureAITeacher    = "ai_teacher"
	FeatureAIStudent    = "ai_student"
	FeatureCertificates = "certificates"
)

// Plan is a subscription tier.
type Plan struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`

	// Hard caps on tenant-scoped resources. Unlimited (-1) disables a cap.
	StudentLimit          int `json:"student_limit"`
	TeacherLimit          int `json:"teacher_limit"`
	AdminLimit            int `json:"admin_limit"`
	CourseLimit           int `json:"course_limit"`
	VirtualClassroomLimit int `json:"virtual_classroom_limit"`
	CertificateMonthly    int `json:"certificate_monthly"`

	// Monthly AI allowances. A zero allowance means the feature is off.
	AITeacherCallsMonthly   int `json:"ai_teacher_calls_monthly"`
	AIStudentMinutesMonthly int `json:"ai_student_minutes_monthly"`

	StorageMB int `json:"storage_mb"`

	// Features is the free-form capability map for everything not covered
	// by the numeric fields. Absent keys read as disabled.
	Features map[string]bool `json:"features"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AllowsFeature resolves a feature gate against the plan.
//
// The three AI/certificate features derive from numeric allowances; any
// other name is looked up in the features map and denied when absent.
func (p *Plan) AllowsFeature(name string) bool {
	switch name {
	case FeatureAITeacher:
		return p.AITeacherCallsMonthly > 0 || p.AITeacherCallsMonthly == Unlimited
	case FeatureAIStudent:
		return p.AIStudentMinutesMonthly > 0 || p.AIStudentMinutesMonthly == Unlimited
	case FeatureCertificates:
		return p.CertificateMonthly > 0 || p.CertificateMonthly == Unlimited
	default:
		return p.Features[name]
	}
}
