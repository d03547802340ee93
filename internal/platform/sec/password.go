// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

/*
Package sec provides the cryptographic primitives of the platform: password
hashing and strength policy (the credential vault) and JWT issuance and
verification (the token service).

It is infrastructure, injected into the application layer via interfaces, and
deliberately free of persistence and transport dependencies.
*/
package sec

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// # Password Policy

const (
	// PasswordMinLength is the minimum accepted password length.
	PasswordMinLength = 8

	// PasswordMaxLength is the maximum accepted password length. bcrypt
	// truncates input at 72 bytes; capping well above that but below any
	// absurd payload keeps hashing cost bounded.
	PasswordMaxLength = 128

	// DefaultHashCost is the default bcrypt work factor.
	DefaultHashCost = 12

	// ResetTokenBytes is the entropy of a password reset token. 32 bytes
	// encode to 64 hex characters.
	ResetTokenBytes = 32
)

// ErrPasswordLength is returned by Hash when the password is outside the
// accepted [PasswordMinLength, PasswordMaxLength] bounds.
var ErrPasswordLength = fmt.Errorf("sec: password must be between %d and %d characters", PasswordMinLength, PasswordMaxLength)

// weakSubstrings is the deny-list of common weak fragments. Matching is
// case-insensitive and substring-based.
var weakSubstrings = []string{"123456", "password", "qwerty", "admin", "letmein"}

// Strength is the qualitative rating produced by [PasswordVault.ValidateStrength].
type Strength string

const (
	StrengthWeak       Strength = "weak"
	StrengthMedium     Strength = "medium"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
)

// StrengthReport is the result of a password strength evaluation.
type StrengthReport struct {
	IsValid     bool     `json:"is_valid"`
	Strength    Strength `json:"strength"`
	Errors      []string `json:"errors,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// # Credential Vault

// PasswordVault hashes and verifies passwords with a configurable bcrypt
// work factor and applies the platform password policy.
//
// The zero value is not usable; construct with [NewPasswordVault].
type PasswordVault struct {
	cost           int
	requireSpecial bool
}

// NewPasswordVault constructs a vault with the given bcrypt work factor.
//
// A cost outside bcrypt's supported range is rejected rather than silently
// clamped: the work factor is a security parameter and a typo in
// configuration should fail startup, not weaken hashing.
func NewPasswordVault(cost int, requireSpecial bool) (*PasswordVault, error) {
	if cost == 0 {
		cost = DefaultHashCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("sec: bcrypt cost %d outside supported range [%d,%d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordVault{cost: cost, requireSpecial: requireSpecial}, nil
}

// Hash hashes a plain-text password using bcrypt with the configured cost.
//
// The salt embedded by bcrypt guarantees that hashing the same password
// twice yields different outputs.
func (vault *PasswordVault) Hash(password string) (string, error) {
	if len(password) < PasswordMinLength || len(password) > PasswordMaxLength {
		return "", ErrPasswordLength
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), vault.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a plain-text password with its stored hash.
//
// It returns false (never an error) for malformed hashes so that structural
// storage problems are indistinguishable from a wrong password to callers.
func (vault *PasswordVault) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash reports whether the hash was produced with a work factor below
// the currently configured one, enabling lazy cost upgrades at login time.
// Malformed hashes report true.
func (vault *PasswordVault) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < vault.cost
}

// ValidateStrength evaluates a candidate password against the platform policy.
//
// # Rating Tiers
//
//   - weak:        shorter than 8 characters, or at most two character classes
//   - medium:      three character classes
//   - strong:      all four character classes
//   - very_strong: all four classes and at least 12 characters
//
// IsValid additionally requires both length bounds, upper, lower, and digit
// classes, the special class when the vault is in require-special mode, and
// no deny-listed substring.
func (vault *PasswordVault) ValidateStrength(password string) StrengthReport {
	report := StrengthReport{}

	hasUpper, hasLower, hasDigit, hasSpecial := classifyRunes(password)

	if len(password) < PasswordMinLength {
		report.Errors = append(report.Errors, fmt.Sprintf("Must be at least %d characters", PasswordMinLength))
	}
	if len(password) > PasswordMaxLength {
		report.Errors = append(report.Errors, fmt.Sprintf("Must be at most %d characters", PasswordMaxLength))
	}
	if !hasUpper {
		report.Errors = append(report.Errors, "Must contain an uppercase letter")
	}
	if !hasLower {
		report.Errors = append(report.Errors, "Must contain a lowercase letter")
	}
	if !hasDigit {
		report.Errors = append(report.Errors, "Must contain a digit")
	}
	if vault.requireSpecial && !hasSpecial {
		report.Errors = append(report.Errors, "Must contain a special character")
	}

	lowered := strings.ToLower(password)
	for _, weak := range weakSubstrings {
		if strings.Contains(lowered, weak) {
			report.Errors = append(report.Errors, fmt.Sprintf("Must not contain the common sequence %q", weak))
			break
		}
	}

	if !hasSpecial {
		report.Suggestions = append(report.Suggestions, "Add a special character to strengthen the password")
	}
	if len(password) < 12 {
		report.Suggestions = append(report.Suggestions, "Use 12 or more characters to strengthen the password")
	}

	classes := 0
	for _, present := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if present {
			classes++
		}
	}

	switch {
	case len(password) < PasswordMinLength || classes <= 2:
		report.Strength = StrengthWeak
	case classes == 3:
		report.Strength = StrengthMedium
	case len(password) >= 12:
		report.Strength = StrengthVeryStrong
	default:
		report.Strength = StrengthStrong
	}

	report.IsValid = len(report.Errors) == 0
	return report
}

// # Generators

const (
	upperChars   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars   = "abcdefghijkmnopqrstuvwxyz"
	digitChars   = "23456789"
	specialChars = "!@#$%^&*-_=+"
)

// GenerateTemporaryPassword produces a random password guaranteed to contain
// at least one character from each required class.
//
// The class-guaranteed characters are shuffled together with the filler so
// the output is not guessable from class-prefix ordering. Lengths below the
// platform minimum are raised to it.
func GenerateTemporaryPassword(length int, includeSpecial bool) (string, error) {
	if length < PasswordMinLength {
		length = PasswordMinLength
	}

	charset := upperChars + lowerChars + digitChars
	required := []string{upperChars, lowerChars, digitChars}
	if includeSpecial {
		charset += specialChars
		required = append(required, specialChars)
	}

	result := make([]byte, 0, length)
	for _, class := range required {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		result = append(result, c)
	}
	for len(result) < length {
		c, err := randomChar(charset)
		if err != nil {
			return "", err
		}
		result = append(result, c)
	}

	// Fisher-Yates with crypto/rand indices.
	for i := len(result) - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		result[i], result[j] = result[j], result[i]
	}

	return string(result), nil
}

// GenerateResetToken returns 256 bits of cryptographic randomness encoded as
// 64 hexadecimal characters.
func GenerateResetToken() (string, error) {
	raw := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("sec: failed to generate reset token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// # Internal Helpers

func classifyRunes(s string) (hasUpper, hasLower, hasDigit, hasSpecial bool) {
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}
	return
}

func randomChar(charset string) (byte, error) {
	idx, err := randomIndex(len(charset))
	if err != nil {
		return 0, err
	}
	return charset[idx], nil
}

func randomIndex(n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("sec: random index bound must be positive")
	}
	idx, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("sec: entropy source failed: %w", err)
	}
	return int(idx.Int64()), nil
}
