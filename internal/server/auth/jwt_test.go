package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/common"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

var issuedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newIssuer(secret string) (*SessionIssuer, *fakeClock) {
	clk := &fakeClock{t: issuedAt}
	return NewSessionIssuer([]byte(secret), 0, clk.Now), clk
}

func TestIssueAndValidate_RoundTrip(t *testing.T) {
	iss, _ := newIssuer("s3cret")

	tok, exp, err := iss.Issue("acc-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, exp.Equal(issuedAt.Add(7*24*time.Hour)))

	s, err := iss.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", s.AccountID)
	assert.Equal(t, models.RoleAdmin, s.Role)
	assert.True(t, s.ExpiresAt.Equal(exp))
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	iss, clk := newIssuer("s3cret")
	tok, _, err := iss.Issue("acc-1", models.RoleStandard)
	require.NoError(t, err)

	clk.t = issuedAt.Add(7*24*time.Hour - time.Second)
	_, err = iss.Validate(tok)
	assert.NoError(t, err)

	clk.t = issuedAt.Add(7*24*time.Hour + time.Second)
	_, err = iss.Validate(tok)
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	a, _ := newIssuer("right")
	b, _ := newIssuer("wrong")

	tok, _, err := a.Issue("acc-1", models.RoleStandard)
	require.NoError(t, err)

	_, err = b.Validate(tok)
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)
}

func TestValidate_Malformed(t *testing.T) {
	iss, _ := newIssuer("s3cret")
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := iss.Validate(tok)
		assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken, tok)
	}
}

func TestValidate_TamperedPayload(t *testing.T) {
	iss, _ := newIssuer("s3cret")
	tok, _, err := iss.Issue("acc-1", models.RoleStandard)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		Role: "admin",
	})
	other, err := forged.SignedString([]byte("attacker"))
	require.NoError(t, err)
	otherParts := strings.Split(other, ".")

	_, err = iss.Validate(parts[0] + "." + otherParts[1] + "." + parts[2])
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestValidate_RejectsOtherAlgorithms(t *testing.T) {
	iss, _ := newIssuer("s3cret")
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1", ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
		Role:             "standard",
	}

	_, err := iss.Validate(sign(t, jwt.SigningMethodHS512, []byte("s3cret"), c))
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)

	_, err = iss.Validate(sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, c))
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)
}

func TestValidate_RequiresExpAndKnownRole(t *testing.T) {
	iss, _ := newIssuer("s3cret")
	key := []byte("s3cret")

	noExp := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1"}, Role: "standard"}
	_, err := iss.Validate(sign(t, jwt.SigningMethodHS256, key, noExp))
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)

	badRole := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "acc-1", ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
		Role:             "root",
	}
	_, err = iss.Validate(sign(t, jwt.SigningMethodHS256, key, badRole))
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)

	noSub := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
		Role:             "standard",
	}
	_, err = iss.Validate(sign(t, jwt.SigningMethodHS256, key, noSub))
	assert.ErrorIs(t, err, common.ErrInvalidOrExpiredToken)
}
