package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		leeway  time.Duration
		wantErr string
	}{
		{name: "valid", secret: "0123456789abcdef", leeway: time.Minute},
		{name: "zero leeway", secret: "0123456789abcdef"},
		{name: "empty secret", secret: "", wantErr: "cannot be empty"},
		{name: "short secret", secret: "short", wantErr: "at least 16 characters"},
		{name: "negative leeway", secret: "0123456789abcdef", leeway: -time.Second, wantErr: "cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewJWTConfig(tt.secret, tt.leeway)
			if tt.wantErr != "" {
				assert.Nil(t, cfg)
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.Secret)
			assert.Equal(t, tt.leeway, cfg.Leeway)
		})
	}
}
