// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package sec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Token Errors

var (
	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid indicates any other verification failure: bad
	// signature, wrong issuer or audience, malformed structure.
	ErrTokenInvalid = errors.New("sec: token invalid")
)

// # Claims

// AuthClaims is the payload embedded inside an access token.
//
// Carrying the institution and active role directly in the token lets the
// middleware rebuild the request identity without a database round-trip for
// the cheap checks; the principal resolver still cross-checks liveness
// against current account state.
type AuthClaims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID        string `json:"uid"`
	InstitutionID string `json:"iid"`
	RoleID        string `json:"rid"`
	RoleName      string `json:"rol"`
	Email         string `json:"eml"`
}

// RefreshClaims is the payload embedded inside a refresh token. It carries
// identity only; role and email are re-resolved from current state when the
// pair is refreshed so that role changes take effect immediately.
type RefreshClaims struct {
	jwt.RegisteredClaims

	UserID        string `json:"uid"`
	InstitutionID string `json:"iid"`
}

// TokenPair is the transport-ready result of a successful authentication.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// # Token Service

const (
	// MinSecretLength is the minimum accepted signing secret length.
	// Anything shorter is a fatal configuration error.
	MinSecretLength = 32

	// DefaultAccessTTL is the default access token lifetime.
	DefaultAccessTTL = 24 * time.Hour

	// DefaultRefreshTTL is the default refresh token lifetime.
	DefaultRefreshTTL = 7 * 24 * time.Hour

	// DefaultExpirySoonThreshold is the window before expiry in which
	// [TokenService.IsExpiringSoon] reports true.
	DefaultExpirySoonThreshold = 15 * time.Minute
)

// TokenService signs and verifies access and refresh tokens using HS256 with
// two independent secrets, so compromise of one class of token cannot be
// parlayed into forging the other.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// TokenOption configures optional [TokenService] behavior.
type TokenOption func(*TokenService)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for expiry tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a token service.
//
// Both secrets must be at least [MinSecretLength] characters and must differ
// from each other; violating either is a startup error, never a silent
// degradation.
func NewTokenService(accessSecret, refreshSecret, issuer, audience string, opts ...TokenOption) (*TokenService, error) {
	if len(accessSecret) < MinSecretLength {
		return nil, fmt.Errorf("sec: access token secret must be at least %d characters", MinSecretLength)
	}
	if len(refreshSecret) < MinSecretLength {
		return nil, fmt.Errorf("sec: refresh token secret must be at least %d characters", MinSecretLength)
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("sec: access and refresh token secrets must be independent")
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("sec: token issuer and audience are required")
	}

	service := &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
		audience:      audience,
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// # Issuance

// IssueAccessToken signs a short-lived access token for the given identity.
func (service *TokenService) IssueAccessToken(userID, institutionID, roleID, roleName, email string) (string, error) {
	issued := service.now()
	claims := AuthClaims{
		RegisteredClaims: service.registeredClaims(userID, issued, service.accessTTL),
		UserID:           userID,
		InstitutionID:    institutionID,
		RoleID:           roleID,
		RoleName:         roleName,
		Email:            email,
	}
	return service.sign(claims, service.accessSecret)
}

// IssueRefreshToken signs a longer-lived refresh token carrying identity only.
func (service *TokenService) IssueRefreshToken(userID, institutionID string) (string, error) {
	issued := service.now()
	claims := RefreshClaims{
		RegisteredClaims: service.registeredClaims(userID, issued, service.refreshTTL),
		UserID:           userID,
		InstitutionID:    institutionID,
	}
	return service.sign(claims, service.refreshSecret)
}

// IssuePair issues a matched access/refresh token pair.
func (service *TokenService) IssuePair(userID, institutionID, roleID, roleName, email string) (*TokenPair, error) {
	access, err := service.IssueAccessToken(userID, institutionID, roleID, roleName, email)
	if err != nil {
		return nil, err
	}
	refresh, err := service.IssueRefreshToken(userID, institutionID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(service.accessTTL.Seconds()),
	}, nil
}

// # Verification

// VerifyAccess checks the signature and registered claims of an access token.
//
// It returns [ErrTokenExpired] for a token past its expiry and
// [ErrTokenInvalid] for every other failure. No claim from an unverified
// token is ever returned.
func (service *TokenService) VerifyAccess(token string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	if err := service.verify(token, claims, service.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks the signature and registered claims of a refresh token.
func (service *TokenService) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := service.verify(token, claims, service.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// ExtractBearer parses an Authorization header value of the exact form
// "Bearer <token>" (one space, exact scheme casing).
//
// A missing header, a different scheme, or a malformed value all return the
// empty string rather than an error, so optional-auth flows can proceed
// unauthenticated.
func ExtractBearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	token := header[len(prefix):]
	if token == "" || strings.ContainsRune(token, ' ') {
		return ""
	}
	return token
}

// IsExpiringSoon reports whether the token's expiry claim falls within the
// threshold. The claim is decoded without signature verification — it is
// only ever used to decide whether to proactively refresh, never to
// authorize. Undecodable tokens report true, failing safe toward re-auth.
func (service *TokenService) IsExpiringSoon(token string, threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultExpirySoonThreshold
	}

	parser := jwt.NewParser()
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return service.now().Add(threshold).After(claims.ExpiresAt.Time)
}

// # Internal Helpers

func (service *TokenService) registeredClaims(subject string, issued time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    service.issuer,
		Audience:  jwt.ClaimStrings{service.audience},
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(issued.Add(ttl)),
	}
}

func (service *TokenService) sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signed, nil
}

func (service *TokenService) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithAudience(service.audience),
		jwt.WithTimeFunc(service.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
