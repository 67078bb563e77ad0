package server

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/smart-intake/internal/ashby"
	"github.com/jonathan/smart-intake/internal/assessments"
	"github.com/jonathan/smart-intake/internal/config"
	"github.com/jonathan/smart-intake/internal/confluence"
	"github.com/jonathan/smart-intake/internal/db"
	"github.com/jonathan/smart-intake/internal/glean"
	"github.com/jonathan/smart-intake/internal/llm"
	"github.com/jonathan/smart-intake/internal/orgctx"
	"github.com/jonathan/smart-intake/internal/server/ratelimit"
	"github.com/jonathan/smart-intake/internal/templates"
)

// FromConfig connects every collaborator cfg enables. Integrations without
// credentials are left out and their routes degrade the documented way.
// Call Server.Close to release what was opened here.
func FromConfig(ctx context.Context, cfg *config.Config, rl *ratelimit.Config) (deps Deps, err error) {
	deps = Deps{
		RateLimit:     rl,
		AutosaveDelay: cfg.AutosaveDelay,
		Port:          cfg.Port,
	}
	defer func() {
		if err != nil {
			for i := len(deps.closers) - 1; i >= 0; i-- {
				deps.closers[i]()
			}
			deps.closers = nil
		}
	}()

	// Store
	if cfg.DatabaseURL == "" {
		log.Println("[server] DATABASE_URL not set, intakes are kept in memory")
		deps.Store = db.NewMemoryStore()
	} else {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return deps, fmt.Errorf("failed to connect to database: %w", err)
		}
		deps.closers = append(deps.closers, database.Close)
		applied, err := database.Migrate(ctx)
		if err != nil {
			return deps, fmt.Errorf("failed to run migrations: %w", err)
		}
		if applied > 0 {
			log.Printf("[server] applied %d migration(s)", applied)
		}
		deps.Store = database
	}

	// Text generation
	if !cfg.LLMConfigured() {
		return deps, fmt.Errorf("LLM credentials are required: set GEMINI_API_KEY, or VERTEX_PROJECT with LLM_PROVIDER=vertex")
	}
	client, err := llm.NewClient(ctx, llm.ConfigFor(cfg.LLMProvider), llm.Credentials{
		APIKey:   cfg.GeminiAPIKey,
		Project:  cfg.VertexProject,
		Location: cfg.VertexLocation,
	})
	if err != nil {
		return deps, fmt.Errorf("failed to create LLM client: %w", err)
	}
	deps.closers = append(deps.closers, func() { _ = client.Close() })
	deps.LLM = client

	// Enterprise search
	var live orgctx.PersonDirectory
	if cfg.GleanConfigured() {
		search, err := glean.NewClient(ctx, cfg.GleanBaseURL, glean.Token(cfg.GleanBearerToken, cfg.GleanAPIKey))
		if err != nil {
			return deps, fmt.Errorf("failed to create enterprise search client: %w", err)
		}
		live = orgctx.NewLiveDirectory(search)
		if cfg.GleanAgentID != "" {
			deps.Agent = search
			deps.AgentID = cfg.GleanAgentID
		}
	}
	deps.Resolver = orgctx.NewResolver(live, nil)

	// ATS
	if cfg.AshbyConfigured() {
		ats, err := ashby.NewClient(cfg.AshbyBaseURL, cfg.AshbyAPIKey)
		if err != nil {
			return deps, fmt.Errorf("failed to create ATS client: %w", err)
		}
		deps.ATS = ats
	}

	// Template catalogs
	catalogFile, err := templates.LoadFile(cfg.TemplateCatalog)
	if err != nil {
		return deps, err
	}
	var forms templates.Catalog = templates.NewFormCatalog(catalogFile)
	if deps.ATS != nil {
		forms = ashby.NewFormCatalog(deps.ATS)
	}
	deps.Matcher = templates.NewMatcher(nil, templates.NewWikiCatalog(catalogFile, cfg.ConfluenceBaseURL), forms)

	// Wiki best practices
	var pages confluence.PageFetcher
	if cfg.ConfluenceConfigured() {
		wiki, err := confluence.NewClient(cfg.ConfluenceBaseURL, cfg.ConfluenceEmail, cfg.ConfluenceAPIToken)
		if err != nil {
			return deps, fmt.Errorf("failed to create wiki client: %w", err)
		}
		pages = wiki
	}
	if deps.Practices, err = confluence.NewLibrary(cfg.ConfluenceBaseURL, pages); err != nil {
		return deps, err
	}

	if deps.Assessments, err = assessments.Load(); err != nil {
		return deps, err
	}

	// Actor tokens
	jwtConfig, err := cfg.ActorTokens()
	if err != nil {
		return deps, err
	}
	if jwtConfig != nil {
		deps.Tokens = NewJWTService(jwtConfig).AsTokenValidator()
	}

	return deps, nil
}
