package services

import (
	"testing"
	"time"

	"telemetry-http-service/internal/infrastructure/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestJWTService(t *testing.T) InterfaceJWTService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewJWTService(&config.Config{
		JWTSecretKey:         "test-secret",
		OperatorUsername:     "ops",
		OperatorPasswordHash: string(hash),
	})
}

func TestLoginIssuesOperatorToken(t *testing.T) {
	s := newTestJWTService(t)

	res, err := s.Login("ops", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, res.Role)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), res.ExpiresAt, time.Minute)

	claims, err := s.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Username)
	assert.Equal(t, RoleOperator, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestJWTService(t)

	_, err := s.Login("ops", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login("root", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledWithoutSecrets(t *testing.T) {
	s := NewJWTService(&config.Config{OperatorUsername: "ops"})

	_, err := s.Login("ops", "hunter2")
	assert.ErrorIs(t, err, ErrLoginDisabled)

	_, err = s.ValidateToken("anything")
	assert.ErrorIs(t, err, ErrLoginDisabled)
}

func TestValidateTokenRejectsForeignSignatures(t *testing.T) {
	s := newTestJWTService(t)

	other := NewJWTService(&config.Config{JWTSecretKey: "other-secret"})
	token, err := other.GenerateToken("ops", RoleOperator)
	require.NoError(t, err)
	_, err = s.ValidateToken(token)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &JWTClaims{Username: "ops", Role: RoleOperator})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.ValidateToken(unsigned)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	s := newTestJWTService(t)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{
		Username: "ops",
		Role:     RoleOperator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	token, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = s.ValidateToken(token)
	assert.Error(t, err)
}
