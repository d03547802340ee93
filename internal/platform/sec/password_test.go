// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/scholaris/scholaris/internal/platform/sec"
)

// newTestVault uses the minimum bcrypt cost so the suite stays fast.
func newTestVault(t *testing.T, requireSpecial bool) *sec.PasswordVault {
	t.Helper()
	vault, err := sec.NewPasswordVault(bcrypt.MinCost, requireSpecial)
	require.NoError(t, err)
	return vault
}

/*
TestVault_HashAndVerify verifies the hash round-trip and that the embedded
salt makes repeated hashes differ.
*/
func TestVault_HashAndVerify(t *testing.T) {
	vault := newTestVault(t, false)

	// 1. Hash a valid password
	hash, err := vault.Hash("Corr3ctHorse")
	require.NoError(t, err)
	assert.NotEqual(t, "Corr3ctHorse", hash)

	// 2. Correct password verifies, wrong one does not
	assert.True(t, vault.Verify("Corr3ctHorse", hash))
	assert.False(t, vault.Verify("wrong-password", hash))

	// 3. Salting: same input, different output
	second, err := vault.Hash("Corr3ctHorse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, second)
}

/*
TestVault_HashLengthBounds verifies that out-of-bounds passwords are rejected
before any hashing work happens.
*/
func TestVault_HashLengthBounds(t *testing.T) {
	vault := newTestVault(t, false)

	_, err := vault.Hash("short")
	assert.ErrorIs(t, err, sec.ErrPasswordLength)

	_, err = vault.Hash(strings.Repeat("a", sec.PasswordMaxLength+1))
	assert.ErrorIs(t, err, sec.ErrPasswordLength)
}

/*
TestVault_VerifyMalformedHash verifies that a corrupted stored hash behaves
like a wrong password instead of erroring.
*/
func TestVault_VerifyMalformedHash(t *testing.T) {
	vault := newTestVault(t, false)

	assert.False(t, vault.Verify("anything", "not-a-bcrypt-hash"))
	assert.False(t, vault.Verify("anything", ""))
}

/*
TestVault_NeedsRehash verifies lazy work-factor upgrade detection.
*/
func TestVault_NeedsRehash(t *testing.T) {
	lowCost, err := sec.NewPasswordVault(bcrypt.MinCost, false)
	require.NoError(t, err)
	highCost, err := sec.NewPasswordVault(bcrypt.MinCost+2, false)
	require.NoError(t, err)

	hash, err := lowCost.Hash("Corr3ctHorse")
	require.NoError(t, err)

	assert.False(t, lowCost.NeedsRehash(hash))
	assert.True(t, highCost.NeedsRehash(hash))
	assert.True(t, highCost.NeedsRehash("garbage"))
}

/*
TestVault_StrengthTiers walks the rating ladder from weak to very strong.
*/
func TestVault_StrengthTiers(t *testing.T) {
	vault := newTestVault(t, false)

	testCases := []struct {
		name     string
		password string
		strength sec.Strength
		valid    bool
	}{
		{"too short", "Ab1", sec.StrengthWeak, false},
		{"two classes", "lowercaseonly1", sec.StrengthWeak, false},
		{"three classes", "Abcdefg1", sec.StrengthMedium, true},
		{"four classes short", "Abcdef1!", sec.StrengthStrong, true},
		{"four classes long", "Abcdefghij1!", sec.StrengthVeryStrong, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			report := vault.ValidateStrength(tc.password)
			assert.Equal(t, tc.strength, report.Strength)
			assert.Equal(t, tc.valid, report.IsValid)
		})
	}
}

/*
TestVault_StrengthDenyList verifies that common weak fragments invalidate a
password regardless of its character classes.
*/
func TestVault_StrengthDenyList(t *testing.T) {
	vault := newTestVault(t, false)

	report := vault.ValidateStrength("MyPassword123!")
	assert.False(t, report.IsValid)
	assert.NotEmpty(t, report.Errors)
}

/*
TestVault_RequireSpecialMode verifies the opt-in special character policy.
*/
func TestVault_RequireSpecialMode(t *testing.T) {
	strict := newTestVault(t, true)
	relaxed := newTestVault(t, false)

	withoutSpecial := "Abcdefgh1"
	assert.False(t, strict.ValidateStrength(withoutSpecial).IsValid)
	assert.True(t, relaxed.ValidateStrength(withoutSpecial).IsValid)
	assert.True(t, strict.ValidateStrength(withoutSpecial+"!").IsValid)
}

/*
TestVault_InvalidCost verifies that an out-of-range bcrypt cost fails
construction.
*/
func TestVault_InvalidCost(t *testing.T) {
	_, err := sec.NewPasswordVault(bcrypt.MaxCost+1, false)
	assert.Error(t, err)

	_, err = sec.NewPasswordVault(2, false)
	assert.Error(t, err)

	// Zero falls back to the default cost.
	vault, err := sec.NewPasswordVault(0, false)
	require.NoError(t, err)
	assert.NotNil(t, vault)
}

/*
TestGenerateTemporaryPassword verifies class guarantees and minimum length
enforcement.
*/
func TestGenerateTemporaryPassword(t *testing.T) {
	// 1. Requested length below the policy minimum is raised
	password, err := sec.GenerateTemporaryPassword(4, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(password), sec.PasswordMinLength)

	// 2. Every required class is present
	password, err = sec.GenerateTemporaryPassword(16, true)
	require.NoError(t, err)
	assert.Len(t, password, 16)

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	assert.True(t, hasUpper)
	assert.True(t, hasLower)
	assert.True(t, hasDigit)
	assert.True(t, hasSpecial)
}

/*
TestGenerateResetToken verifies token shape and uniqueness.
*/
func TestGenerateResetToken(t *testing.T) {
	first, err := sec.GenerateResetToken()
	require.NoError(t, err)
	assert.Len(t, first, sec.ResetTokenBytes*2)

	second, err := sec.GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
