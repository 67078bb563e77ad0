package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every configuration variable for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(strings.ToUpper(key), "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, DefaultVertexLocation, cfg.VertexLocation)
	assert.Equal(t, DefaultAshbyBaseURL, cfg.AshbyBaseURL)
	assert.Equal(t, DefaultAutosaveDelay, cfg.AutosaveDelay)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.LLMConfigured())
	assert.False(t, cfg.GleanConfigured())
	assert.False(t, cfg.AshbyConfigured())
	assert.False(t, cfg.ConfluenceConfigured())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/intake")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GLEAN_BASE_URL", "https://acme-be.glean.com")
	t.Setenv("GLEAN_BEARER_TOKEN", "token")
	t.Setenv("ASHBY_API_KEY", "ashby")
	t.Setenv("PORT", "9090")
	t.Setenv("AUTOSAVE_DELAY", "500ms")

	cfg, err := Load(nil, "")
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/intake", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDelay)
	assert.True(t, cfg.LLMConfigured())
	assert.True(t, cfg.GleanConfigured())
	assert.True(t, cfg.AshbyConfigured())
}

func TestLoad_AutosaveDelayMilliseconds(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOSAVE_DELAY", "1500")

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.AutosaveDelay)
}

func TestLoad_InvalidAutosaveDelay(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTOSAVE_DELAY", "soon")

	cfg, err := Load(nil, "")
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "invalid AUTOSAVE_DELAY")
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")

	content := `
llm_provider: vertex
vertex_project: acme-recruiting
port: 8181
template_catalog: /etc/intake/catalog.yaml
`
	path := filepath.Join(t.TempDir(), "intake.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(nil, path)
	require.NoError(t, err)

	assert.Equal(t, "vertex", cfg.LLMProvider)
	assert.Equal(t, "acme-recruiting", cfg.VertexProject)
	assert.Equal(t, "/etc/intake/catalog.yaml", cfg.TemplateCatalog)
	assert.Equal(t, 7070, cfg.Port, "environment wins over the file")
	assert.True(t, cfg.LLMConfigured())
}

func TestLoad_ConfigFileNotFound(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil, "/nonexistent/intake.yaml")
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "failed to read config file")
}

func validConfig() Config {
	return Config{LLMProvider: "gemini", AutosaveDelay: time.Second, Port: 8080}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "port too low", mutate: func(c *Config) { c.Port = 0 }, wantErr: "PORT"},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "PORT"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLMProvider = "openai" }, wantErr: "LLM_PROVIDER"},
		{name: "vertex without project", mutate: func(c *Config) { c.LLMProvider = "vertex" }, wantErr: "VERTEX_PROJECT"},
		{name: "vertex with project", mutate: func(c *Config) { c.LLMProvider = "vertex"; c.VertexProject = "p" }},
		{name: "zero delay", mutate: func(c *Config) { c.AutosaveDelay = 0 }, wantErr: "AUTOSAVE_DELAY"},
		{name: "delay too long", mutate: func(c *Config) { c.AutosaveDelay = 2 * time.Minute }, wantErr: "AUTOSAVE_DELAY"},
		{name: "glean url without token", mutate: func(c *Config) { c.GleanBaseURL = "https://g" }, wantErr: "GLEAN_API_KEY"},
		{name: "glean token without url", mutate: func(c *Config) { c.GleanAPIKey = "k" }, wantErr: "GLEAN_BASE_URL"},
		{name: "glean api key", mutate: func(c *Config) { c.GleanBaseURL = "https://g"; c.GleanAPIKey = "k" }},
		{name: "confluence email only", mutate: func(c *Config) { c.ConfluenceEmail = "a@b.c"; c.ConfluenceBaseURL = "https://w" }, wantErr: "must be set together"},
		{name: "confluence without url", mutate: func(c *Config) { c.ConfluenceEmail = "a@b.c"; c.ConfluenceAPIToken = "t" }, wantErr: "CONFLUENCE_BASE_URL"},
		{name: "confluence complete", mutate: func(c *Config) {
			c.ConfluenceEmail, c.ConfluenceAPIToken, c.ConfluenceBaseURL = "a@b.c", "t", "https://w"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestActorTokens(t *testing.T) {
	cfg := validConfig()
	tokens, err := cfg.ActorTokens()
	require.NoError(t, err)
	assert.Nil(t, tokens, "no secret disables token verification")

	cfg.JWTSecret = "a-secret-that-is-long-enough"
	tokens, err = cfg.ActorTokens()
	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.Equal(t, DefaultJWTLeeway, tokens.Leeway)
}
