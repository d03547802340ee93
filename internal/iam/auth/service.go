// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/scholaris/scholaris/internal/iam/role"
	"github.com/scholaris/scholaris/internal/platform/apperr"
	"github.com/scholaris/scholaris/internal/platform/audit"
	"github.com/scholaris/scholaris/internal/platform/sec"
	"github.com/scholaris/scholaris/internal/platform/validate"
	"github.com/scholaris/scholaris/internal/tenant"
)

// Service orchestrates the authentication workflows.
type Service struct {
	repo         Repository
	resetTokens  ResetTokenRepository
	throttle     LoginThrottle
	roles        role.Repository
	institutions tenant.Repository
	vault        *sec.PasswordVault
	tokens       *sec.TokenService
	auditor      *audit.Recorder
	logger       *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock overrides the service's time source.
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) { s.now = fn }
}

// WithSleep overrides the blocking wait used for the password-reset uniform
// delay. Tests replace it to avoid real sleeping.
func WithSleep(fn func(time.Duration)) ServiceOption {
	return func(s *Service) { s.sleep = fn }
}

func NewService(
	repo Repository,
	resetTokens ResetTokenRepository,
	throttle LoginThrottle,
	roles role.Repository,
	institutions tenant.Repository,
	vault *sec.PasswordVault,
	tokens *sec.TokenService,
	auditor *audit.Recorder,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	service := &Service{
		repo:         repo,
		resetTokens:  resetTokens,
		throttle:     throttle,
		roles:        roles,
		institutions: institutions,
		vault:        vault,
		tokens:       tokens,
		auditor:      auditor,
		logger:       logger,
		now:          time.Now,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// AuthResponse is the payload returned by registration, login and refresh.
type AuthResponse struct {
	User   *Principal     `json:"user"`
	Role   sec.RoleName   `json:"role_name"`
	Tokens *sec.TokenPair `json:"tokens"`
}

// # Registration

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	InstitutionID string `json:"institution_id"`
	RoleName      string `json:"role_name"`
}

/*
Register creates a new principal with its primary role assignment and
role-specific profile row in a single transaction, then issues a token pair.

The email-uniqueness probe is fail-fast only; the accounts unique index is
the arbiter under concurrent registration, surfacing as Conflict. Any
failure before commit leaves no partial state.
*/
func (service *Service) Register(ctx context.Context, input RegisterInput, ip, userAgent string) (*AuthResponse, error) {
	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)
	validator.Required(FieldFirstName, input.FirstName).MaxLen(FieldFirstName, input.FirstName, 100)
	validator.MaxLen(FieldLastName, input.LastName, 100)
	validator.Required(FieldInstitutionID, input.InstitutionID).UUID(FieldInstitutionID, input.InstitutionID)
	validator.Required(FieldRoleName, input.RoleName).
		Custom(FieldRoleName, !sec.RoleName(input.RoleName).IsValid(), "unknown role name")
	if err := validator.Err(); err != nil {
		return nil, err
	}

	exists, err := service.repo.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("Email is already registered")
	}

	inst, err := service.institutions.GetInstitution(ctx, input.InstitutionID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return nil, apperr.BadRequest("Institution does not exist")
		}
		return nil, err
	}
	if !inst.IsActive() {
		return nil, apperr.Forbidden("Institution is not active")
	}

	roleName := sec.RoleName(input.RoleName)
	assignedRole, err := service.roles.FindRoleByName(ctx, roleName, inst.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return nil, apperr.BadRequest("Role does not exist")
		}
		return nil, err
	}

	report := service.vault.ValidateStrength(input.Password)
	if !report.IsValid {
		details := make([]apperr.FieldError, 0, len(report.Errors))
		for _, msg := range report.Errors {
			details = append(details, apperr.FieldError{Field: FieldPassword, Message: msg})
		}
		return nil, apperr.ValidationError("Password is too weak", details...)
	}

	hash, err := service.vault.Hash(input.Password)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}

	principal := &Principal{
		Email:         input.Email,
		PasswordHash:  &hash,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		InstitutionID: inst.ID,
	}
	if err := service.repo.RegisterPrincipal(ctx, principal, assignedRole.ID, roleName); err != nil {
		return nil, err
	}

	// The principal exists from here on. A signing failure surfaces as
	// Internal and the caller retries via login.
	pair, err := service.tokens.IssuePair(principal.ID, inst.ID, assignedRole.ID, string(roleName), principal.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventUserRegistered,
		PrincipalID:   principal.ID,
		InstitutionID: inst.ID,
		IP:            ip,
		UserAgent:     userAgent,
		Details:       map[string]any{"role": string(roleName)},
	})
	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventUserCreated,
		PrincipalID:   principal.ID,
		InstitutionID: inst.ID,
	})

	return &AuthResponse{User: principal, Role: roleName, Tokens: pair}, nil
}

// # Login

// LoginInput carries the credentials presented at login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

/*
Login authenticates an email+password pair.

Unknown email, missing password hash, and wrong password all collapse into
one generic Unauthorized so responses cannot be used to enumerate accounts.
Inactive accounts and institutions reject with distinct reasons — by then
the caller has already proven knowledge of a valid credential.
*/
func (service *Service) Login(ctx context.Context, input LoginInput, ip, userAgent string) (*AuthResponse, error) {
	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	blocked, err := service.throttle.Blocked(ctx, input.Email, ip)
	if err != nil {
		return nil, err
	}
	if blocked {
		service.auditor.Record(ctx, audit.Event{
			Name:      audit.EventLoginThrottled,
			IP:        ip,
			UserAgent: userAgent,
		})
		return nil, apperr.RateLimited(int(time.Minute.Seconds()))
	}

	principal, err := service.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return nil, service.failLogin(ctx, input.Email, ip, userAgent, "unknown_email")
		}
		return nil, err
	}

	if principal.PasswordHash == nil {
		return nil, service.failLogin(ctx, input.Email, ip, userAgent, "no_password")
	}
	if !service.vault.Verify(input.Password, *principal.PasswordHash) {
		return nil, service.failLogin(ctx, input.Email, ip, userAgent, "wrong_password")
	}

	if !principal.IsActive {
		service.auditLoginFailed(ctx, principal.ID, ip, userAgent, "principal_inactive")
		return nil, apperr.Forbidden("Account is deactivated")
	}

	inst, err := service.institutions.GetInstitution(ctx, principal.InstitutionID)
	if err != nil {
		return nil, err
	}
	if !inst.IsActive() {
		service.auditLoginFailed(ctx, principal.ID, ip, userAgent, "institution_inactive")
		return nil, apperr.Forbidden("Institution is not active")
	}

	activeRole, err := service.roles.ActiveRole(ctx, principal.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			service.auditLoginFailed(ctx, principal.ID, ip, userAgent, "no_role_assignment")
			return nil, apperr.Forbidden("No active role assignment")
		}
		return nil, err
	}

	// Lazy cost upgrade: rehash on successful verification when the stored
	// hash predates the current cost factor.
	if service.vault.NeedsRehash(*principal.PasswordHash) {
		if newHash, hashErr := service.vault.Hash(input.Password); hashErr == nil {
			if updateErr := service.repo.UpdatePasswordHash(ctx, principal.ID, newHash); updateErr != nil {
				service.logger.WarnContext(ctx, "password rehash failed", "error", updateErr)
			}
		}
	}

	if err := service.repo.UpdateLastLogin(ctx, principal.ID); err != nil {
		service.logger.WarnContext(ctx, "last_login update failed", "error", err)
	}
	if err := service.throttle.Reset(ctx, input.Email, ip); err != nil {
		service.logger.WarnContext(ctx, "throttle reset failed", "error", err)
	}

	pair, err := service.tokens.IssuePair(principal.ID, principal.InstitutionID, activeRole.ID, string(activeRole.Name), principal.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventLoginSuccess,
		PrincipalID:   principal.ID,
		InstitutionID: principal.InstitutionID,
		IP:            ip,
		UserAgent:     userAgent,
	})

	principal.PasswordHash = nil
	return &AuthResponse{User: principal, Role: activeRole.Name, Tokens: pair}, nil
}

// # Refresh

/*
Refresh verifies a refresh token and issues a complete new pair from the
latest persisted state, so role changes since the old pair was minted take
effect immediately. Any inactivity discovered on reload rejects.
*/
func (service *Service) Refresh(ctx context.Context, refreshToken, ip, userAgent string) (*AuthResponse, error) {
	claims, err := service.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	principal, err := service.repo.GetPrincipal(ctx, claims.UserID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Account no longer exists")
		}
		return nil, err
	}
	if !principal.IsActive {
		return nil, apperr.Unauthorized("Account is deactivated")
	}

	inst, err := service.institutions.GetInstitution(ctx, principal.InstitutionID)
	if err != nil {
		return nil, err
	}
	if !inst.IsActive() {
		return nil, apperr.Unauthorized("Institution is not active")
	}

	activeRole, err := service.roles.ActiveRole(ctx, principal.ID)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("No active role assignment")
		}
		return nil, err
	}

	pair, err := service.tokens.IssuePair(principal.ID, principal.InstitutionID, activeRole.ID, string(activeRole.Name), principal.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventTokenRefreshed,
		PrincipalID:   principal.ID,
		InstitutionID: principal.InstitutionID,
		IP:            ip,
		UserAgent:     userAgent,
	})

	principal.PasswordHash = nil
	return &AuthResponse{User: principal, Role: activeRole.Name, Tokens: pair}, nil
}

// # Password Lifecycle

/*
ChangePassword verifies the current password before accepting a new one.

Existing sessions stay valid until natural token expiry: access tokens are
stateless and there is no server-side revocation list.
*/
func (service *Service) ChangePassword(ctx context.Context, principalID, currentPassword, newPassword string) error {
	principal, err := service.repo.GetPrincipal(ctx, principalID)
	if err != nil {
		return err
	}
	if principal.PasswordHash == nil || !service.vault.Verify(currentPassword, *principal.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	report := service.vault.ValidateStrength(newPassword)
	if !report.IsValid {
		details := make([]apperr.FieldError, 0, len(report.Errors))
		for _, msg := range report.Errors {
			details = append(details, apperr.FieldError{Field: FieldPassword, Message: msg})
		}
		return apperr.ValidationError("Password is too weak", details...)
	}

	hash, err := service.vault.Hash(newPassword)
	if err != nil {
		return apperr.ValidationError(err.Error())
	}
	if err := service.repo.UpdatePasswordHash(ctx, principalID, hash); err != nil {
		return err
	}

	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventPasswordChanged,
		PrincipalID:   principalID,
		InstitutionID: principal.InstitutionID,
	})
	return nil
}

/*
RequestPasswordReset starts the reset flow for an email address.

Every call takes at least [ResetUniformDelay] of wall-clock time and the
caller-visible outcome is identical whether or not the account exists or is
active — existence must not be inferable from timing or response shape.

The raw token is returned to the caller (the delivery channel) and is never
persisted; only its SHA-256 hash is stored. For unknown or inactive
accounts the returned token is empty.
*/
func (service *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	started := service.now()
	defer func() {
		if elapsed := service.now().Sub(started); elapsed < ResetUniformDelay {
			service.sleep(ResetUniformDelay - elapsed)
		}
	}()

	validator := &validate.Validator{}
	validator.Required(FieldEmail, email).Email(FieldEmail, email)
	if err := validator.Err(); err != nil {
		return "", err
	}

	principal, err := service.repo.FindByEmail(ctx, email)
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return "", nil
		}
		return "", err
	}
	if !principal.IsActive {
		return "", nil
	}

	rawToken, err := sec.GenerateResetToken()
	if err != nil {
		return "", apperr.Internal(err)
	}

	token := &ResetToken{
		TokenHash:   hashResetToken(rawToken),
		PrincipalID: principal.ID,
		ExpiresAt:   service.now().Add(ResetTokenTTL),
	}
	if err := service.resetTokens.Insert(ctx, token); err != nil {
		return "", err
	}

	service.auditor.Record(ctx, audit.Event{
		Name:          audit.EventPasswordResetRequested,
		PrincipalID:   principal.ID,
		InstitutionID: principal.InstitutionID,
	})
	return rawToken, nil
}

/*
ResetPassword redeems a reset token and sets a new password.

Consumption is a single atomic claim on the stored hash; missing, expired,
and already-used tokens are indistinguishable to the caller.
*/
func (service *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	validator := &validate.Validator{}
	validator.Required(FieldToken, rawToken)
	validator.Required(FieldPassword, newPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	// The new password must clear the policy before the token is touched:
	// a rejected attempt leaves the token redeemable, never burnt.
	report := service.vault.ValidateStrength(newPassword)
	if !report.IsValid {
		details := make([]apperr.FieldError, 0, len(report.Errors))
		for _, msg := range report.Errors {
			details = append(details, apperr.FieldError{Field: FieldPassword, Message: msg})
		}
		return apperr.ValidationError("Password is too weak", details...)
	}

	hash, err := service.vault.Hash(newPassword)
	if err != nil {
		return apperr.ValidationError(err.Error())
	}

	token, err := service.resetTokens.Consume(ctx, hashResetToken(rawToken), service.now())
	if err != nil {
		if apperr.IsKind(err, apperr.CodeNotFound) {
			return apperr.Unauthorized("Invalid or expired reset token")
		}
		return err
	}
	if err := service.repo.UpdatePasswordHash(ctx, token.PrincipalID, hash); err != nil {
		return err
	}

	service.auditor.Record(ctx, audit.Event{
		Name:        audit.EventPasswordResetCompleted,
		PrincipalID: token.PrincipalID,
	})
	return nil
}

// # Helpers

// failLogin records a failed attempt and returns the generic credential
// error shared by all enumeration-sensitive failure modes.
func (service *Service) failLogin(ctx context.Context, email, ip, userAgent, reason string) error {
	if _, err := service.throttle.RegisterFailure(ctx, email, ip); err != nil {
		service.logger.WarnContext(ctx, "throttle increment failed", "error", err)
	}

	service.auditor.Record(ctx, audit.Event{
		Name:      audit.EventLoginFailed,
		IP:        ip,
		UserAgent: userAgent,
		Details:   map[string]any{"reason": reason},
	})
	return apperr.Unauthorized("Invalid credentials")
}

func (service *Service) auditLoginFailed(ctx context.Context, principalID, ip, userAgent, reason string) {
	service.auditor.Record(ctx, audit.Event{
		Name:        audit.EventLoginFailed,
		PrincipalID: principalID,
		IP:          ip,
		UserAgent:   userAgent,
		Details:     map[string]any{"reason": reason},
	})
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
