package server

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/smart-intake/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func setupTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	cfg, err := config.NewJWTConfig(testJWTSecret, 0)
	require.NoError(t, err)
	return NewJWTService(cfg)
}

func signToken(t *testing.T, method jwt.SigningMethod, secret any, claims *ActorClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func actorClaims(email string, expiresIn time.Duration) *ActorClaims {
	now := time.Now()
	return &ActorClaims{
		Email: email,
		Name:  "Ana Recruiter",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestJWTService_ValidateToken(t *testing.T) {
	service := setupTestJWTService(t)
	token := signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), actorClaims("ana@handshake.com", time.Hour))

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana@handshake.com", claims.Email)
	assert.Equal(t, "Ana Recruiter", claims.GetIdentity().Name)
}

func TestJWTService_ValidateToken_Rejects(t *testing.T) {
	service := setupTestJWTService(t)

	tests := []struct {
		name    string
		token   string
		wantErr string
	}{
		{name: "empty", token: "", wantErr: "token string is empty"},
		{name: "garbage", token: "not.a.token", wantErr: "malformed token"},
		{
			name:    "wrong secret",
			token:   signToken(t, jwt.SigningMethodHS256, []byte("another-secret-of-enough-length"), actorClaims("a@b.c", time.Hour)),
			wantErr: "invalid token signature",
		},
		{
			name:    "expired",
			token:   signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), actorClaims("a@b.c", -time.Hour)),
			wantErr: "token expired",
		},
		{
			name:    "other hmac method",
			token:   signToken(t, jwt.SigningMethodHS512, []byte(testJWTSecret), actorClaims("a@b.c", time.Hour)),
			wantErr: "invalid token signature",
		},
		{
			name:    "missing email",
			token:   signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), actorClaims("", time.Hour)),
			wantErr: "no email claim",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := setupTestJWTService(t)
	token := signToken(t, jwt.SigningMethodHS256, []byte(testJWTSecret), actorClaims("bo@handshake.com", time.Hour))

	getter, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "bo@handshake.com", getter.GetIdentity().Email)
}
