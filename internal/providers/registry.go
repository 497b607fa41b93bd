package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/noctivault/pkg/provider"
)

// Factory builds a remote provider for one platform.
type Factory func(ctx context.Context, cfg RemoteConfig) (provider.Provider, error)

// Registry maps platforms to remote provider factories. Google is built in;
// adding a platform means registering a factory here and extending the
// platform enum.
type Registry struct {
	mu        sync.RWMutex
	factories map[provider.Platform]Factory
}

// NewRegistry creates a registry with the built-in platforms registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[provider.Platform]Factory)}
	r.RegisterFactory(provider.PlatformGoogle, func(ctx context.Context, cfg RemoteConfig) (provider.Provider, error) {
		return NewGoogleProvider(ctx, cfg)
	})
	return r
}

// RegisterFactory registers or replaces the factory for a platform.
func (r *Registry) RegisterFactory(platform provider.Platform, factory Factory) {
	r.mu.Lock()
	r.factories[platform] = factory
	r.mu.Unlock()
}

// ForPlatform constructs a remote provider for the platform.
func (r *Registry) ForPlatform(ctx context.Context, platform provider.Platform, cfg RemoteConfig) (provider.Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[platform]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %q", platform)
	}
	return factory(ctx, cfg)
}

// Supported reports whether a factory exists for the platform.
func (r *Registry) Supported(platform provider.Platform) bool {
	r.mu.RLock()
	_, ok := r.factories[platform]
	r.mu.RUnlock()
	return ok
}

// defaultRegistry backs the package-level ForPlatform used by the client
// facade.
var defaultRegistry = NewRegistry()

// ForPlatform constructs a remote provider from the default registry.
func ForPlatform(ctx context.Context, platform provider.Platform, cfg RemoteConfig) (provider.Provider, error) {
	return defaultRegistry.ForPlatform(ctx, platform, cfg)
}
