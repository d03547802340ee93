// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package sec

// # Role Names

// RoleName identifies one of the platform's well-known roles. Role records
// live in the iam schema; this enum only fixes the spelling of their names
// so token claims and authorization checks agree.
type RoleName string

const (
	RoleAdmin     RoleName = "ADMIN"
	RoleSecretary RoleName = "SECRETARY"
	RoleDirector  RoleName = "DIRECTOR"
	RoleTeacher   RoleName = "TEACHER"
	RoleStudent   RoleName = "STUDENT"
	RoleTutor     RoleName = "TUTOR"
	RoleFinance   RoleName = "FINANCE"
	RoleSupport   RoleName = "SUPPORT"
)

// KnownRoles lists every role name the platform recognizes.
var KnownRoles = []RoleName{
	RoleAdmin, RoleSecretary, RoleDirector, RoleTeacher,
	RoleStudent, RoleTutor, RoleFinance, RoleSupport,
}

// IsValid reports whether r is one of the known role names.
func (r RoleName) IsValid() bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// In reports whether r is a member of the allowed set.
//
// There is no implicit admin bypass here: callers enumerate exactly which
// roles qualify for an operation.
func (r RoleName) In(allowed ...RoleName) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
