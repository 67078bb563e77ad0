// Package config loads the service configuration from the environment, an
// optional config file and command line flags.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration keys. Each key is also read from the upper-cased environment
// variable of the same name.
const (
	KeyDatabaseURL        = "database_url"
	KeyLLMProvider        = "llm_provider"
	KeyGeminiAPIKey       = "gemini_api_key"
	KeyVertexProject      = "vertex_project"
	KeyVertexLocation     = "vertex_location"
	KeyGleanBaseURL       = "glean_base_url"
	KeyGleanAPIKey        = "glean_api_key"
	KeyGleanBearerToken   = "glean_bearer_token"
	KeyGleanAgentID       = "glean_agent_id"
	KeyAshbyAPIKey        = "ashby_api_key"
	KeyAshbyBaseURL       = "ashby_base_url"
	KeyConfluenceBaseURL  = "confluence_base_url"
	KeyConfluenceEmail    = "confluence_email"
	KeyConfluenceAPIToken = "confluence_api_token"
	KeyTemplateCatalog    = "template_catalog"
	KeyAutosaveDelay      = "autosave_delay"
	KeyJWTSecret          = "jwt_secret"
	KeyPort               = "port"
)

// Defaults
const (
	DefaultPort           = 8080
	DefaultLLMProvider    = "gemini"
	DefaultVertexLocation = "us-central1"
	DefaultAshbyBaseURL   = "https://api.ashbyhq.com"
	DefaultAutosaveDelay  = 2 * time.Second
	// MaxAutosaveDelay keeps edits from sitting unsaved for long
	MaxAutosaveDelay = time.Minute
)

var allKeys = []string{
	KeyDatabaseURL, KeyLLMProvider, KeyGeminiAPIKey, KeyVertexProject, KeyVertexLocation,
	KeyGleanBaseURL, KeyGleanAPIKey, KeyGleanBearerToken, KeyGleanAgentID,
	KeyAshbyAPIKey, KeyAshbyBaseURL,
	KeyConfluenceBaseURL, KeyConfluenceEmail, KeyConfluenceAPIToken,
	KeyTemplateCatalog, KeyAutosaveDelay, KeyJWTSecret, KeyPort,
}

// Config holds the settings of the intake service. Integrations whose
// credentials are empty are treated as not configured.
type Config struct {
	DatabaseURL string

	LLMProvider    string
	GeminiAPIKey   string
	VertexProject  string
	VertexLocation string

	GleanBaseURL     string
	GleanAPIKey      string
	GleanBearerToken string
	GleanAgentID     string

	AshbyAPIKey  string
	AshbyBaseURL string

	ConfluenceBaseURL  string
	ConfluenceEmail    string
	ConfluenceAPIToken string

	TemplateCatalog string
	AutosaveDelay   time.Duration
	JWTSecret       string
	Port            int
}

// NewViper returns a viper instance with defaults set and every key bound to
// its environment variable
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	for _, key := range allKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyLLMProvider, DefaultLLMProvider)
	v.SetDefault(KeyVertexLocation, DefaultVertexLocation)
	v.SetDefault(KeyAshbyBaseURL, DefaultAshbyBaseURL)
	v.SetDefault(KeyAutosaveDelay, DefaultAutosaveDelay)
	return v
}

// LoadDotEnv loads .env files into the process environment. Missing files are
// ignored and variables already set win.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads the configuration from v. A non-empty configFile (YAML, JSON or
// TOML, by extension) is merged under the environment.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	delay, err := durationOf(v, KeyAutosaveDelay)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:        v.GetString(KeyDatabaseURL),
		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLLMProvider))),
		GeminiAPIKey:       v.GetString(KeyGeminiAPIKey),
		VertexProject:      v.GetString(KeyVertexProject),
		VertexLocation:     v.GetString(KeyVertexLocation),
		GleanBaseURL:       v.GetString(KeyGleanBaseURL),
		GleanAPIKey:        v.GetString(KeyGleanAPIKey),
		GleanBearerToken:   v.GetString(KeyGleanBearerToken),
		GleanAgentID:       v.GetString(KeyGleanAgentID),
		AshbyAPIKey:        v.GetString(KeyAshbyAPIKey),
		AshbyBaseURL:       v.GetString(KeyAshbyBaseURL),
		ConfluenceBaseURL:  v.GetString(KeyConfluenceBaseURL),
		ConfluenceEmail:    v.GetString(KeyConfluenceEmail),
		ConfluenceAPIToken: v.GetString(KeyConfluenceAPIToken),
		TemplateCatalog:    v.GetString(KeyTemplateCatalog),
		AutosaveDelay:      delay,
		JWTSecret:          v.GetString(KeyJWTSecret),
		Port:               v.GetInt(KeyPort),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// durationOf accepts Go durations ("2s") and bare millisecond counts ("2000")
func durationOf(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("invalid %s: %q", strings.ToUpper(key), raw)
}

// Validate checks value ranges and settings that must be given together
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got: %d", c.Port)
	}

	switch c.LLMProvider {
	case "gemini", "":
	case "vertex":
		if c.VertexProject == "" {
			return fmt.Errorf("VERTEX_PROJECT is required when LLM_PROVIDER is vertex")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be gemini or vertex, got: %q", c.LLMProvider)
	}

	if c.AutosaveDelay <= 0 || c.AutosaveDelay > MaxAutosaveDelay {
		return fmt.Errorf("AUTOSAVE_DELAY must be positive and at most %s, got: %s", MaxAutosaveDelay, c.AutosaveDelay)
	}

	hasGleanToken := c.GleanAPIKey != "" || c.GleanBearerToken != ""
	if c.GleanBaseURL != "" && !hasGleanToken {
		return fmt.Errorf("GLEAN_API_KEY or GLEAN_BEARER_TOKEN is required when GLEAN_BASE_URL is set")
	}
	if c.GleanBaseURL == "" && hasGleanToken {
		return fmt.Errorf("GLEAN_BASE_URL is required when a Glean token is set")
	}

	if (c.ConfluenceEmail == "") != (c.ConfluenceAPIToken == "") {
		return fmt.Errorf("CONFLUENCE_EMAIL and CONFLUENCE_API_TOKEN must be set together")
	}
	if c.ConfluenceEmail != "" && c.ConfluenceBaseURL == "" {
		return fmt.Errorf("CONFLUENCE_BASE_URL is required when Confluence credentials are set")
	}
	return nil
}

// LLMConfigured reports whether the selected provider has credentials
func (c *Config) LLMConfigured() bool {
	if c.LLMProvider == "vertex" {
		return c.VertexProject != ""
	}
	return c.GeminiAPIKey != ""
}

// GleanConfigured reports whether enterprise search can be called
func (c *Config) GleanConfigured() bool {
	return c.GleanBaseURL != "" && (c.GleanAPIKey != "" || c.GleanBearerToken != "")
}

// AshbyConfigured reports whether the ATS can be called
func (c *Config) AshbyConfigured() bool {
	return c.AshbyAPIKey != ""
}

// ConfluenceConfigured reports whether live wiki pages can be fetched
func (c *Config) ConfluenceConfigured() bool {
	return c.ConfluenceBaseURL != "" && c.ConfluenceEmail != "" && c.ConfluenceAPIToken != ""
}

// ActorTokens returns the bearer token settings, or nil when JWT_SECRET is unset
func (c *Config) ActorTokens() (*JWTConfig, error) {
	if c.JWTSecret == "" {
		return nil, nil
	}
	return NewJWTConfig(c.JWTSecret, DefaultJWTLeeway)
}
