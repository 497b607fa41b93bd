// Package providers implements the two noctivault secret providers: a local
// mock provider backed by the parsed store document, and a remote provider
// backed by Google Cloud Secret Manager with retry, backoff, and error
// classification. A small registry maps platforms to remote constructors.
package providers

import (
	"context"

	"github.com/systmms/noctivault/pkg/provider"
	"github.com/systmms/noctivault/pkg/schema"
)

type mockKey struct {
	platform provider.Platform
	project  string
	name     string
}

// LocalMockProvider serves fetches from statically declared mocks. It is a
// pure lookup table: no network, no retries, no mutation after construction.
type LocalMockProvider struct {
	index map[mockKey]map[int]string
}

// NewLocalMockProvider indexes a store document's mocks by their effective
// (platform, project, name) key, with a version map per key. Later mocks for
// the same key and version overwrite earlier ones, matching document order.
func NewLocalMockProvider(store *schema.StoreFile) *LocalMockProvider {
	index := make(map[mockKey]map[int]string, len(store.Mocks))
	for _, m := range store.Mocks {
		key := mockKey{platform: m.Platform, project: m.Project, name: m.Name}
		versions, ok := index[key]
		if !ok {
			versions = make(map[int]string)
			index[key] = versions
		}
		versions[m.Version] = m.Value
	}
	return &LocalMockProvider{index: index}
}

// Name implements provider.Provider.
func (p *LocalMockProvider) Name() string { return "local-mock" }

// Fetch looks up the mock value for ref. A key with no mocks at all fails
// without a version in the error; a known key missing the requested version
// names the version that was asked for. "latest" selects the maximum
// declared integer version.
func (p *LocalMockProvider) Fetch(_ context.Context, ref provider.Ref) (string, error) {
	versions := p.index[mockKey{platform: ref.Platform, project: ref.Project, name: ref.Name}]
	if len(versions) == 0 {
		return "", provider.MissingLocalMockError{
			Platform: ref.Platform,
			Project:  ref.Project,
			Name:     ref.Name,
		}
	}
	n, ok := ref.Version.Number()
	if !ok {
		for v := range versions {
			if v > n {
				n = v
			}
		}
	}
	value, ok := versions[n]
	if !ok {
		return "", provider.MissingLocalMockError{
			Platform: ref.Platform,
			Project:  ref.Project,
			Name:     ref.Name,
			Version:  ref.Version.String(),
		}
	}
	return value, nil
}
