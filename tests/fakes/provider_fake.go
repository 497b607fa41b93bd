package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/systmms/noctivault/pkg/provider"
)

// FakeProvider is a manual fake implementation of provider.Provider.
//
// Values are stored in memory keyed by the full reference coordinate, and
// individual references can be configured to fail. Every fetch is recorded
// so tests can assert order and count.
//
// Example usage:
//
//	fake := fakes.NewFakeProvider().
//	    WithValue(ref, "secret123").
//	    WithError(badRef, provider.RemoteUnavailableError{Resource: "..."})
type FakeProvider struct {
	mu      sync.Mutex
	values  map[string]string
	failOn  map[string]error
	fetched []provider.Ref
}

// NewFakeProvider creates an empty fake provider. Use the builder methods to
// configure values and failures.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		values: make(map[string]string),
		failOn: make(map[string]error),
	}
}

// WithValue sets the value returned for one exact reference.
func (f *FakeProvider) WithValue(ref provider.Ref, value string) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[ref.Resource()] = value
	return f
}

// WithError configures one exact reference to fail with err.
func (f *FakeProvider) WithError(ref provider.Ref, err error) *FakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failOn[ref.Resource()] = err
	return f
}

// Name returns the provider's identifier.
func (f *FakeProvider) Name() string { return "fake" }

// Fetch returns the configured value or error for ref. An unconfigured
// reference fails the way the local mock provider fails, so error-handling
// paths see a realistic miss.
func (f *FakeProvider) Fetch(_ context.Context, ref provider.Ref) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = append(f.fetched, ref)

	key := ref.Resource()
	if err, ok := f.failOn[key]; ok {
		return "", err
	}
	value, ok := f.values[key]
	if !ok {
		return "", provider.MissingLocalMockError{
			Platform: ref.Platform,
			Project:  ref.Project,
			Name:     ref.Name,
		}
	}
	return value, nil
}

// Fetched returns a copy of every reference fetched so far, in call order.
func (f *FakeProvider) Fetched() []provider.Ref {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]provider.Ref, len(f.fetched))
	copy(out, f.fetched)
	return out
}

// FetchCount returns how many fetches have been made.
func (f *FakeProvider) FetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.fetched)
}

// String returns a short description for test failure messages.
func (f *FakeProvider) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return fmt.Sprintf("FakeProvider{values=%d}", len(f.values))
}
