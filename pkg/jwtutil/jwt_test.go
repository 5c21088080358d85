package jwtutil_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gwon-omega/eduflow-server/pkg/config"
	"github.com/gwon-omega/eduflow-server/pkg/jwtutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUtil() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&config.JWTConfig{
		SigningKey:      "test-signing-key",
		ExpirationHours: 1,
	})
}

func TestGenerateAndVerify(t *testing.T) {
	util := newUtil()

	token, err := util.GenerateToken("user-1", "u@example.com", "student")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := util.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "student", claims.Role)
	assert.Nil(t, claims.InstituteID)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestTokenCarriesInstituteContext(t *testing.T) {
	util := newUtil()
	instID := "inst-1"

	token, err := util.GenerateTokenWithInstitute("user-1", "u@example.com", "institute_admin", &instID)
	require.NoError(t, err)

	claims, err := util.Verify(token)
	require.NoError(t, err)
	require.NotNil(t, claims.InstituteID)
	assert.Equal(t, instID, *claims.InstituteID)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	token, err := newUtil().GenerateToken("user-1", "u@example.com", "student")
	require.NoError(t, err)

	other := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "different-key", ExpirationHours: 1})
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	expired := jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: -1})
	token, err := expired.GenerateToken("user-1", "u@example.com", "student")
	require.NoError(t, err)

	_, err = newUtil().Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	// An unsigned token must never verify, even with a matching payload.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &jwtutil.UserClaims{UserID: "user-1"})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newUtil().Verify(raw)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := newUtil().Verify("not-a-token")
	assert.Error(t, err)
}
