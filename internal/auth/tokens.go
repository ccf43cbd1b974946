package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "pricewatch/pkg/types"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature or shape
	// checks.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when an access token is past its TTL.
	ErrTokenExpired = errors.New("token expired")

	// ErrLoginExpired is returned when a refresh is attempted after the
	// login validity period has run out. The user must log in again.
	ErrLoginExpired = errors.New("login validity period expired")

	// ErrPasswordChanged is returned when the token was issued before the
	// user's most recent password change.
	ErrPasswordChanged = errors.New("password changed since token was issued")
)

// Claims are the access token claims. LastLogin and LastPasswordChange are
// carried as unix seconds so a token can be refreshed without a new login
// and revoked wholesale by changing the password.
type Claims struct {
	jwt.RegisteredClaims
	LastLogin          int64 `json:"ll"`
	LastPasswordChange int64 `json:"lpc"`
}

type activationClaims struct {
	jwt.RegisteredClaims
	Purpose string `json:"purpose"`
}

const purposeActivation = "activation"

// TokenManager issues and verifies HS256 signed tokens.
type TokenManager struct {
	secret           []byte
	tokenTTL         time.Duration
	loginValidPeriod time.Duration
	activationTTL    time.Duration
	nowFunc          func() time.Time
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithNowFunc overrides the clock, for tests.
func WithNowFunc(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if now != nil {
			m.nowFunc = now
		}
	}
}

// NewTokenManager creates a TokenManager. tokenTTL bounds a single access
// token, loginValidPeriod bounds how long expired tokens stay refreshable,
// and activationTTL bounds account activation links.
func NewTokenManager(secret string, tokenTTL, loginValidPeriod, activationTTL time.Duration, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		secret:           []byte(secret),
		tokenTTL:         tokenTTL,
		loginValidPeriod: loginValidPeriod,
		activationTTL:    activationTTL,
		nowFunc:          time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IssueAccessToken signs a fresh access token for the user.
func (m *TokenManager) IssueAccessToken(u *domain.User) (string, error) {
	return m.sign(u.ID, u.LastLogin.Unix(), u.LastPasswordChange.Unix())
}

// VerifyAccessToken validates the signature and expiry of an access token
// and returns its claims.
func (m *TokenManager) VerifyAccessToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseForRefresh validates the signature of a possibly expired access token
// and returns its claims. Expiry is deliberately not checked here; Refresh
// enforces the login validity window instead.
func (m *TokenManager) ParseForRefresh(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh issues a new access token from an old token's claims without a new
// login. The original login time is preserved so the validity window never
// slides. Refusal cases: the login validity period has run out, or the user
// changed their password after the old token was issued.
func (m *TokenManager) Refresh(claims *Claims, u *domain.User) (string, error) {
	loginDeadline := time.Unix(claims.LastLogin, 0).Add(m.loginValidPeriod)
	if m.nowFunc().After(loginDeadline) {
		return "", ErrLoginExpired
	}
	if claims.LastPasswordChange != u.LastPasswordChange.Unix() {
		return "", ErrPasswordChanged
	}
	return m.sign(u.ID, claims.LastLogin, u.LastPasswordChange.Unix())
}

// IssueActivationToken signs a short-lived token embedded in the account
// activation link.
func (m *TokenManager) IssueActivationToken(userID string) (string, error) {
	now := m.nowFunc()
	claims := activationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.activationTTL)),
		},
		Purpose: purposeActivation,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing activation token: %w", err)
	}
	return signed, nil
}

// VerifyActivationToken validates an activation token and returns the user ID
// it was issued for.
func (m *TokenManager) VerifyActivationToken(tokenStr string) (string, error) {
	claims := &activationClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.Purpose != purposeActivation {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (m *TokenManager) sign(userID string, lastLogin, lastPasswordChange int64) (string, error) {
	now := m.nowFunc()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenTTL)),
		},
		LastLogin:          lastLogin,
		LastPasswordChange: lastPasswordChange,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) keyFunc(*jwt.Token) (any, error) {
	return m.secret, nil
}
