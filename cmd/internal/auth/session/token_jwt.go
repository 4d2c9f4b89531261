package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind selects which signing secret and lifetime a token is bound to.
type TokenKind string

const (
	// KindAccess is the short-lived per-request credential.
	KindAccess TokenKind = "access"
	// KindRefresh is the long-lived credential used only to mint new pairs.
	KindRefresh TokenKind = "refresh"
)

// Claims is the minimal identity envelope carried by both token kinds.
type Claims struct {
	UserID    string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// TokenManager issues and verifies the two signed token kinds.
type TokenManager interface {
	Issue(kind TokenKind, userID string, now time.Time) (token string, exp time.Time, err error)
	Verify(kind TokenKind, token string, now time.Time) (Claims, error)
}

type jwtHS256Manager struct {
	issuer    string
	clockSkew time.Duration

	secrets map[TokenKind][]byte
	ttls    map[TokenKind]time.Duration
}

// NewJWTManager builds a TokenManager signing HS256 JWTs.
//
// Each kind has its own secret; verification of one kind never consults the
// other kind's secret, so cross-kind tokens fail the signature check.
func NewJWTManager(cfg Config) (TokenManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &jwtHS256Manager{
		issuer:    cfg.Issuer,
		clockSkew: cfg.ClockSkew,
		secrets: map[TokenKind][]byte{
			KindAccess:  []byte(cfg.AccessTokenSecret),
			KindRefresh: []byte(cfg.RefreshTokenSecret),
		},
		ttls: map[TokenKind]time.Duration{
			KindAccess:  cfg.AccessTokenTTL,
			KindRefresh: cfg.RefreshTokenTTL,
		},
	}, nil
}

func (m *jwtHS256Manager) Issue(kind TokenKind, userID string, now time.Time) (string, time.Time, error) {
	secret, ok := m.secrets[kind]
	if !ok || userID == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	exp := now.Add(m.ttls[kind])

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *jwtHS256Manager) Verify(kind TokenKind, tokenStr string, now time.Time) (Claims, error) {
	secret, ok := m.secrets[kind]
	if !ok || tokenStr == "" {
		return Claims{}, ErrInvalidToken
	}

	// A fresh parser per call keeps the verification time pinned to the
	// caller-supplied clock, which makes expiry boundaries testable.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var rc jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(tokenStr, &rc, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	// All failure modes collapse to one error: expired, malformed, and
	// wrong-secret tokens must be indistinguishable to the caller.
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if rc.Subject == "" || rc.ExpiresAt == nil {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		UserID:    rc.Subject,
		ExpiresAt: rc.ExpiresAt.Time,
		Issuer:    rc.Issuer,
	}
	if rc.IssuedAt != nil {
		claims.IssuedAt = rc.IssuedAt.Time
	}
	return claims, nil
}
