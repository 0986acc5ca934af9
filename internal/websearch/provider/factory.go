package provider

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/lk2023060901/chat-gateway/internal/websearch/types"
)

// Factory creates provider instances
type Factory struct {
	mu           sync.RWMutex
	client       *http.Client
	constructors map[types.ProviderID]Constructor
}

// NewFactory creates a new provider factory. Every provider it creates shares
// client; nil lets each provider build its own.
func NewFactory(client *http.Client) *Factory {
	f := &Factory{
		client:       client,
		constructors: make(map[types.ProviderID]Constructor),
	}

	// Register built-in providers
	f.Register(types.ProviderTavily, NewTavilyProvider)
	f.Register(types.ProviderBing, NewBingProvider)
	f.Register(types.ProviderGoogle, NewGoogleProvider)
	f.Register(types.ProviderDuckDuckGo, NewDuckDuckGoProvider)
	f.Register(types.ProviderBaidu, NewBaiduProvider)
	f.Register(types.ProviderSearXNG, NewSearXNGProvider)

	return f
}

// Register registers a provider constructor
func (f *Factory) Register(id types.ProviderID, constructor Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[id] = constructor
}

// Has reports whether id is a registered provider
func (f *Factory) Has(id types.ProviderID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[id]
	return ok
}

// Create creates a provider instance from configuration. An unknown ID is
// rejected before the configuration is looked at.
func (f *Factory) Create(config *types.ProviderConfig) (Provider, error) {
	f.mu.RLock()
	constructor, exists := f.constructors[config.ID]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", types.ErrProviderNotFound, config.ID)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return constructor(config, f.client)
}

// ListProviders returns the registered provider IDs in sorted order
func (f *Factory) ListProviders() []types.ProviderID {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]types.ProviderID, 0, len(f.constructors))
	for id := range f.constructors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
