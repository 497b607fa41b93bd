// Package noctivault is the embedding facade: load secret references from a
// directory, resolve them against the local mock store or the remote
// backend, and read values out of the resulting masked tree.
//
// A Client is constructed once with Settings and loaded once per reference
// document. After Load, Secrets returns the immutable tree and Get and
// DisplayHash answer path lookups. All default renderings of the tree stay
// masked; only Get and a reveal projection return raw material.
package noctivault

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/systmms/noctivault/internal/logging"
	"github.com/systmms/noctivault/internal/providers"
	"github.com/systmms/noctivault/internal/resolve"
	"github.com/systmms/noctivault/pkg/localstore"
	"github.com/systmms/noctivault/pkg/provider"
	"github.com/systmms/noctivault/pkg/schema"
	"github.com/systmms/noctivault/pkg/secrets"
)

// Source selects where secret values come from.
type Source string

const (
	// SourceLocal resolves against the local mock store in the load
	// directory. This is the default.
	SourceLocal Source = "local"

	// SourceRemote resolves against the real backend for the document's
	// platform.
	SourceRemote Source = "remote"
)

// ErrNotLoaded is returned by lookups before a successful Load.
var ErrNotLoaded = errors.New("no secrets loaded: call Load first")

// Settings configures a Client.
type Settings struct {
	// Source picks local mocks or the remote backend. Empty means local.
	Source Source

	// Enc configures key resolution for an encrypted local store.
	Enc localstore.EncSettings

	// CredentialsFile is a service-account key file for remote fetches.
	// Empty means application-default credentials.
	CredentialsFile string

	// Provider overrides Source with an injected provider. The caller keeps
	// ownership; the client will not close it.
	Provider provider.Provider

	// Logger receives resolve and retry events. Nil disables logging.
	Logger *logging.Logger

	// Getenv is consulted by the key resolution chain, defaulting to
	// os.Getenv. Tests inject a fake to stay hermetic.
	Getenv func(string) string
}

// Client resolves reference documents and serves path lookups on the result.
// Load replaces the held tree; lookups are safe concurrently with each other.
type Client struct {
	settings Settings

	mu    sync.RWMutex
	tree  *secrets.Interior
	index map[string]secrets.Value
}

// New creates an unloaded client.
func New(settings Settings) *Client {
	if settings.Getenv == nil {
		settings.Getenv = os.Getenv
	}
	return &Client{settings: settings}
}

// Load reads the reference document in dir, resolves every reference through
// the configured source, and retains the resulting tree. For local sources
// the mock store in the same directory is loaded first, decrypting it if only
// the encrypted form exists. The returned tree is also available via Secrets.
func (c *Client) Load(ctx context.Context, dir string) (*secrets.Interior, error) {
	refs, err := c.readReferences(dir)
	if err != nil {
		return nil, err
	}

	prov, owned, err := c.buildProvider(ctx, dir, refs)
	if err != nil {
		return nil, err
	}
	if owned {
		defer closeProvider(prov, c.settings.Logger)
	}

	tree, err := resolve.New(prov, c.settings.Logger).Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.tree = tree
	c.index = indexTree(tree)
	c.mu.Unlock()

	return tree, nil
}

// Secrets returns the tree from the last successful Load, or nil.
func (c *Client) Secrets() *secrets.Interior {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}

// Get returns the cast value at a dot-joined path: a string for str-typed
// leaves, an int for int-typed ones.
func (c *Client) Get(path string) (any, error) {
	value, err := c.valueAt(path)
	if err != nil {
		return nil, err
	}
	return value.Cast()
}

// DisplayHash returns the lowercase hex SHA3-256 of the raw value at path.
// Operators can compare hashes across environments without revealing values.
func (c *Client) DisplayHash(path string) (string, error) {
	value, err := c.valueAt(path)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256([]byte(value.Get()))
	return hex.EncodeToString(sum[:]), nil
}

func (c *Client) valueAt(path string) (secrets.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.index == nil {
		return secrets.Value{}, ErrNotLoaded
	}
	value, ok := c.index[path]
	if !ok {
		return secrets.Value{}, fmt.Errorf("no secret at path %q", path)
	}
	return value, nil
}

func (c *Client) readReferences(dir string) (*schema.ReferenceFile, error) {
	path := filepath.Join(dir, localstore.ReferencesFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read references file: %w", err)
	}
	refs, err := schema.ParseReferences(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return refs, nil
}

// buildProvider picks the provider for this load. The boolean reports
// whether the client constructed it and must close it.
func (c *Client) buildProvider(ctx context.Context, dir string, refs *schema.ReferenceFile) (provider.Provider, bool, error) {
	if c.settings.Provider != nil {
		return c.settings.Provider, false, nil
	}
	switch c.settings.Source {
	case SourceLocal, "":
		store, err := localstore.Load(dir, c.settings.Enc, c.settings.Getenv)
		if err != nil {
			return nil, false, err
		}
		return providers.NewLocalMockProvider(store), true, nil
	case SourceRemote:
		prov, err := providers.ForPlatform(ctx, refs.Platform, providers.RemoteConfig{
			CredentialsFile: c.settings.CredentialsFile,
			Logger:          c.settings.Logger,
		})
		if err != nil {
			return nil, false, err
		}
		return prov, true, nil
	}
	return nil, false, fmt.Errorf("unsupported source: %q", c.settings.Source)
}

func closeProvider(p provider.Provider, logger *logging.Logger) {
	closer, ok := p.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil && logger != nil {
		logger.Debug("failed to close provider %s: %v", p.Name(), err)
	}
}

// indexTree flattens a tree into a dot-path lookup table of leaf values.
func indexTree(tree *secrets.Interior) map[string]secrets.Value {
	index := make(map[string]secrets.Value)
	var walk func(prefix string, n *secrets.Interior)
	walk = func(prefix string, n *secrets.Interior) {
		for _, name := range n.Keys() {
			child, ok := n.Child(name)
			if !ok {
				continue
			}
			path := name
			if prefix != "" {
				path = prefix + "." + name
			}
			switch t := child.(type) {
			case *secrets.Interior:
				walk(path, t)
			case *secrets.Leaf:
				index[path] = t.Value()
			}
		}
	}
	walk("", tree)
	return index
}
