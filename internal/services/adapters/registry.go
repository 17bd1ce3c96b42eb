package adapters

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// Registry resolves a company's adapter kind to its implementation.
// Registration happens once at startup; lookups are read-only.
type Registry struct {
	adapters map[models.AdapterKind]interfaces.Adapter
}

// NewRegistry builds the registry from the fetcher and LLM client.
// llm may be nil, in which case the ai_parsed kind is unavailable.
func NewRegistry(fetcher interfaces.Fetcher, llm interfaces.LLMClient, logger arbor.ILogger) *Registry {
	r := &Registry{adapters: make(map[models.AdapterKind]interfaces.Adapter)}

	r.register(NewPagedAPIAdapter(fetcher, logger))
	r.register(NewFeedAdapter(fetcher, logger))
	if llm != nil {
		r.register(NewAIParsedAdapter(fetcher, llm, logger))
	}

	return r
}

func (r *Registry) register(a interfaces.Adapter) {
	r.adapters[a.Kind()] = a
}

// Resolve returns the adapter for the kind, or an error for unknown or
// unavailable kinds
func (r *Registry) Resolve(kind models.AdapterKind) (interfaces.Adapter, error) {
	a, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for kind %q", kind)
	}
	return a, nil
}
