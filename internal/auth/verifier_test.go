package auth_test

import (
	"testing"
	"time"

	"github.com/evetabi/auction/internal/auth"
	"github.com/evetabi/auction/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := auth.NewVerifier("secret", time.Minute)
	p := domain.Principal{UserID: uuid.New(), Role: domain.RoleBuyer, DisplayName: "Ana"}

	tok, err := v.Issue(p)
	require.NoError(t, err)

	got, err := v.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestVerifier_WrongSecret(t *testing.T) {
	tok, err := auth.NewVerifier("one", time.Minute).Issue(domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = auth.NewVerifier("two", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifier_Expired(t *testing.T) {
	v := auth.NewVerifier("secret", time.Nanosecond)
	tok, err := v.Issue(domain.Principal{UserID: uuid.New(), Role: domain.RoleSeller})
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = v.Parse(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifier_RejectsRefreshAndUnknownRole(t *testing.T) {
	secret := []byte("secret")
	sign := func(c auth.Claims) string {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
		require.NoError(t, err)
		return s
	}
	v := auth.NewVerifier("secret", time.Minute)

	refresh := auth.Claims{Role: "buyer", TokenType: "refresh"}
	refresh.Subject = uuid.NewString()
	_, err := v.Parse(sign(refresh))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	weird := auth.Claims{Role: "root", TokenType: "access"}
	weird.Subject = uuid.NewString()
	_, err = v.Parse(sign(weird))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	noSubject := auth.Claims{Role: "buyer", TokenType: "access"}
	_, err = v.Parse(sign(noSubject))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestVerifier_RejectsNoneAlg(t *testing.T) {
	c := auth.Claims{Role: "admin", TokenType: "access"}
	c.Subject = uuid.NewString()
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Minute))
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewVerifier("secret", time.Minute).Parse(tok)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}
