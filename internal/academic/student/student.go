// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package student manages the institution's student roster.

Creates are quota-gated by the subscription plan and re-validated inside
the inserting transaction, so concurrent admissions cannot jointly exceed
the plan's student limit.
*/
package student

import "time"

// Student is one roster entry. PrincipalID links the entry to a login
// account when the student self-registered; roster-only students have none.
type Student struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institution_id"`
	PrincipalID   *string   `json:"principal_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Validated entity field identifiers.
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
	FieldIDs       = "ids"
)
