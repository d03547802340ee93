// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

// Package course manages the institution's course catalog.
package course

import "time"

type Course struct {
	ID            string     `json:"id"`
	InstitutionID string     `json:"institution_id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Description   string     `json:"description"`
	IsPublished   bool       `json:"is_published"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

const (
	FieldTitle       = "title"
	FieldDescription = "description"
)
