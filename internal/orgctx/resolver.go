package orgctx

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/jonathan/smart-intake/internal/types"
)

// ErrManagerRequired is returned when no manager name is given
var ErrManagerRequired = errors.New("manager name is required")

// Resolver prefers the live directory and degrades to the synthetic one
type Resolver struct {
	live      PersonDirectory
	synthetic PersonDirectory
}

// NewResolver creates a resolver. A nil live directory means the search
// integration is not configured.
func NewResolver(live PersonDirectory, synthetic PersonDirectory) *Resolver {
	if synthetic == nil {
		synthetic = NewSyntheticDirectory(nil)
	}
	return &Resolver{live: live, synthetic: synthetic}
}

// Configured reports whether a live directory is wired in
func (r *Resolver) Configured() bool {
	return r.live != nil
}

// Resolve returns org context for managerName. It only fails on missing input.
func (r *Resolver) Resolve(ctx context.Context, managerName, jobTitleHint string) (*types.OrgContext, error) {
	if strings.TrimSpace(managerName) == "" {
		return nil, ErrManagerRequired
	}

	if r.live == nil {
		log.Printf("[orgctx] directory not configured, generating org for %q", managerName)
		return r.synthetic.Lookup(ctx, managerName, jobTitleHint)
	}

	org, liveErr := r.live.Lookup(ctx, managerName, jobTitleHint)
	if liveErr == nil {
		return org, nil
	}
	log.Printf("[orgctx] live lookup for %q failed, falling back: %v", managerName, liveErr)

	org, err := r.synthetic.Lookup(ctx, managerName, jobTitleHint)
	if err != nil {
		return nil, err
	}
	org.Source = types.OrgSourceFallback
	org.LookupError = liveErr.Error()
	return org, nil
}
