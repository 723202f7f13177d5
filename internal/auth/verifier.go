// Package auth verifies the HS256 access tokens issued by the account
// subsystem and turns them into a domain.Principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/auction/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTypeAccess = "access"

// Claims extends jwt.RegisteredClaims with the caller's role and display name.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"type"` // "access" or "refresh"
}

// Verifier parses and, for tooling and tests, issues access tokens.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewVerifier creates a Verifier for the shared HMAC secret.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Verifier{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Parse validates signature, algorithm, expiry and token type, and returns
// the principal the token asserts.
func (v *Verifier) Parse(tokenString string) (domain.Principal, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return domain.Principal{}, errors.Join(domain.ErrTokenInvalid, err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok {
		return domain.Principal{}, domain.ErrTokenInvalid
	}
	if claims.TokenType != tokenTypeAccess {
		return domain.Principal{}, fmt.Errorf("%w: token type must be access", domain.ErrTokenInvalid)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: subject: %w", domain.ErrTokenInvalid, err)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Principal{}, err
	}

	return domain.Principal{UserID: userID, Role: role, DisplayName: claims.Name}, nil
}

// Issue signs an access token for p.
func (v *Verifier) Issue(p domain.Principal) (string, error) {
	now := v.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		Role:      string(p.Role),
		Name:      p.DisplayName,
		TokenType: tokenTypeAccess,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth.Issue: sign: %w", err)
	}
	return signed, nil
}
