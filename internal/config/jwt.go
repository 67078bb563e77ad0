package config

import (
	"fmt"
	"time"
)

// DefaultJWTLeeway tolerates clock skew between the token issuer and this service
const DefaultJWTLeeway = 30 * time.Second

// minSecretLength rejects secrets too short for HS256
const minSecretLength = 16

// JWTConfig holds the settings used to verify the bearer tokens that name the
// acting user. Tokens are issued elsewhere; this service only checks them.
type JWTConfig struct {
	Secret string
	Leeway time.Duration
}

// NewJWTConfig creates a verified token configuration
func NewJWTConfig(secret string, leeway time.Duration) (*JWTConfig, error) {
	cfg := &JWTConfig{Secret: secret, Leeway: leeway}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET cannot be empty")
	}
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters, got: %d", minSecretLength, len(c.Secret))
	}
	if c.Leeway < 0 {
		return fmt.Errorf("JWT leeway cannot be negative, got: %s", c.Leeway)
	}
	return nil
}
