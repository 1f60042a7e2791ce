package llm

import (
	"fmt"
	"strings"
	"sync"
)

// Registry resolves "provider/model" strings into cached clients so the
// router, answerer, and scorer can each be pinned to a different model
// without re-authenticating per component.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]ClientConfig // provider type -> base config
	clients map[string]*Client      // "provider/model" -> client
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[string]ClientConfig),
		clients: make(map[string]*Client),
	}
}

// Configure stores the base configuration for a provider type. The model in
// the config acts as the default when a model string names none.
func (r *Registry) Configure(providerType string, config ClientConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[providerType] = config
}

// Resolve parses a model string in "provider/model" form (model optional)
// and returns a client for it, constructing and caching on first use.
func (r *Registry) Resolve(modelString string) (*Client, error) {
	providerType, model, err := ParseModelString(modelString)
	if err != nil {
		return nil, err
	}

	key := providerType + "/" + model

	r.mu.RLock()
	client, ok := r.clients[key]
	r.mu.RUnlock()
	if ok {
		return client, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Re-check under the write lock.
	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	config, ok := r.configs[providerType]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", providerType)
	}
	if model != "" {
		config.Model = model
	}

	client, err = NewClient(providerType, config)
	if err != nil {
		return nil, err
	}
	r.clients[key] = client
	return client, nil
}

// ParseModelString splits a "provider/model" string. A bare provider name
// selects the provider's default model.
func ParseModelString(s string) (providerType, model string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("model string cannot be empty")
	}

	parts := strings.SplitN(s, "/", 2)
	providerType = parts[0]
	if providerType == "" {
		return "", "", fmt.Errorf("model string %q has no provider", s)
	}
	if len(parts) == 2 {
		model = parts[1]
	}
	return providerType, model, nil
}
