package config

import (
	"fmt"

	"github.com/aman-cerp/docretrieve/internal/normalize"
)

// RetrievalContext is the resolved, immutable ambient state threaded through
// ingestion and the HTTP layer (spec.md §9 "Ambient config state"). It is
// built once at process startup from a Config — no package-level globals.
type RetrievalContext struct {
	Config   *Config
	Stoplist *normalize.Stoplist
}

// NewRetrievalContext resolves cfg into a RetrievalContext, validating it
// first.
func NewRetrievalContext(cfg *Config) (*RetrievalContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config: nil Config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RetrievalContext{
		Config:   cfg,
		Stoplist: normalize.NewDefaultStoplist(),
	}, nil
}
