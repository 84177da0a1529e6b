// Package token issues and verifies the signed, typed tokens used by
// the platform. Each token type carries its own secret and expiry so
// a leaked or mixed-up secret for one type never validates another.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type identifies what a token is for. The type is embedded in the
// claims and checked on verification, so an access token can never be
// replayed as a refresh token even if the secrets were equal.
type Type string

const (
	// Access tokens authenticate regular API requests. Short-lived.
	Access Type = "access"
	// Refresh tokens mint new access tokens. Long-lived, stored in
	// the session store for single-session revocation.
	Refresh Type = "refresh"
	// EmailAction tokens back password-reset links. Medium-lived.
	EmailAction Type = "email_action"
)

// ErrExpired reports a structurally valid, correctly signed token
// whose expiry has passed. Callers surface a different user-facing
// error for this case than for ErrInvalid.
var ErrExpired = errors.New("token expired")

// ErrInvalid reports every other verification failure: bad signature,
// wrong secret, wrong type, malformed claims.
var ErrInvalid = errors.New("token invalid")

// Claims is the payload carried by every platform token.
type Claims struct {
	UserID     uint64   `json:"uid"`
	Email      string   `json:"email"`
	RoleIDs    []uint64 `json:"roles"`
	SuperAdmin bool     `json:"super_admin"`
	TokenType  Type     `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs and verifies HS256 tokens. It is stateless and safe
// for concurrent use; verification is pure CPU work.
type Service struct {
	secrets map[Type][]byte
	ttls    map[Type]time.Duration
}

// Config supplies the per-type secrets and lifetimes.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	EmailSecret   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	EmailTTL      time.Duration
}

// New builds a Service. Every secret must be non-empty.
func New(cfg Config) (*Service, error) {
	secrets := map[Type][]byte{
		Access:      []byte(cfg.AccessSecret),
		Refresh:     []byte(cfg.RefreshSecret),
		EmailAction: []byte(cfg.EmailSecret),
	}
	for typ, secret := range secrets {
		if len(secret) == 0 {
			return nil, fmt.Errorf("empty secret for %s tokens", typ)
		}
	}
	return &Service{
		secrets: secrets,
		ttls: map[Type]time.Duration{
			Access:      cfg.AccessTTL,
			Refresh:     cfg.RefreshTTL,
			EmailAction: cfg.EmailTTL,
		},
	}, nil
}

// Issue signs a token of the given type for the identity carried in
// claims. The expiry and type claims are set here; any values the
// caller put in them are overwritten.
func (s *Service) Issue(claims Claims, typ Type) (string, error) {
	secret, ok := s.secrets[typ]
	if !ok {
		return "", fmt.Errorf("unknown token type %q", typ)
	}
	now := time.Now().UTC()
	claims.TokenType = typ
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttls[typ]))
	// A unique jti keeps two tokens issued within the same second
	// from serializing identically; reset-token rows are looked up
	// by exact token value and must never collide.
	claims.ID = uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// Verify parses a token with the secret of the expected type and
// returns its claims. Expiry surfaces as ErrExpired; every other
// failure, including a token of a different type, as ErrInvalid.
func (s *Service) Verify(raw string, typ Type) (Claims, error) {
	secret, ok := s.secrets[typ]
	if !ok {
		return Claims{}, fmt.Errorf("%w: unknown token type %q", ErrInvalid, typ)
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	var claims Claims
	parsed, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid || claims.TokenType != typ {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}
