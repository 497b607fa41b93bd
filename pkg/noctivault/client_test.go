package noctivault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/noctivault/pkg/localstore"
	"github.com/systmms/noctivault/pkg/provider"
	"github.com/systmms/noctivault/pkg/secrets"
	"github.com/systmms/noctivault/tests/fakes"
)

const testStoreYAML = `platform: google
gcp_project_id: acme-prod
secret-mocks:
  - name: db-password
    value: hunter2
    version: 1
  - name: redis-password
    value: redis-secret
    version: 1
  - name: redis-port
    value: 6379
    version: 1
`

const testRefsYAML = `platform: google
gcp_project_id: acme-prod
secret-refs:
  - cast: database_password
    ref: db-password
  - key: redis
    children:
      - cast: password
        ref: redis-password
      - cast: port
        ref: redis-port
        type: int
`

func noEnv(string) string { return "" }

// envMap builds a hermetic getenv over fixed values.
func envMap(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestClient_Load_LocalPlainStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.StoreFilename, testStoreYAML)
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	c := New(Settings{Getenv: noEnv})
	tree, err := c.Load(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, []string{"database_password", "redis"}, tree.Keys())
	assert.Same(t, tree, c.Secrets())

	got, err := c.Get("database_password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	port, err := c.Get("redis.port")
	require.NoError(t, err)
	assert.Equal(t, 6379, port)
}

func TestClient_Load_LocalEncryptedStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.StoreFilename, testStoreYAML)
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	keyPath, err := localstore.GenerateKey(filepath.Join(dir, "keys", "local.key"))
	require.NoError(t, err)
	material, err := localstore.KeyMaterialFromFile(keyPath)
	require.NoError(t, err)
	defer material.Destroy()

	_, err = localstore.SealFile(dir, material, localstore.SealOptions{RemovePlain: true})
	require.NoError(t, err)

	c := New(Settings{
		Enc:    localstore.EncSettings{KeyFile: keyPath},
		Getenv: noEnv,
	})
	tree, err := c.Load(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, []string{"database_password", "redis"}, tree.Keys())

	got, err := c.Get("redis.password")
	require.NoError(t, err)
	assert.Equal(t, "redis-secret", got)
}

func TestClient_Load_EncryptedStoreWithoutKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.StoreFilename, testStoreYAML)
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	material := localstore.KeyMaterialFromBytes(make([]byte, 32))
	defer material.Destroy()
	_, err := localstore.SealFile(dir, material, localstore.SealOptions{RemovePlain: true})
	require.NoError(t, err)

	// Pin HOME so the user-level key fallback stays inside the sandbox.
	c := New(Settings{Getenv: envMap(map[string]string{"HOME": filepath.Join(dir, "home")})})
	_, err = c.Load(context.Background(), dir)

	var missing localstore.MissingKeyMaterialError
	assert.ErrorAs(t, err, &missing)
}

func TestClient_Load_InjectedProvider(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	fake := fakes.NewFakeProvider().
		WithValue(provider.Ref{Platform: provider.PlatformGoogle, Project: "acme-prod", Name: "db-password"}, "injected").
		WithValue(provider.Ref{Platform: provider.PlatformGoogle, Project: "acme-prod", Name: "redis-password"}, "r").
		WithValue(provider.Ref{Platform: provider.PlatformGoogle, Project: "acme-prod", Name: "redis-port"}, "1")

	c := New(Settings{Provider: fake, Getenv: noEnv})
	_, err := c.Load(context.Background(), dir)

	require.NoError(t, err)
	got, err := c.Get("database_password")
	require.NoError(t, err)
	assert.Equal(t, "injected", got)
	assert.Equal(t, 3, fake.FetchCount())
}

func TestClient_Load_MissingReferencesFile(t *testing.T) {
	t.Parallel()

	c := New(Settings{Getenv: noEnv})
	_, err := c.Load(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read references file")
}

func TestClient_Load_UnsupportedSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	c := New(Settings{Source: Source("cloud"), Getenv: noEnv})
	_, err := c.Load(context.Background(), dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported source: "cloud"`)
}

func TestClient_Get_BeforeLoad(t *testing.T) {
	t.Parallel()

	c := New(Settings{Getenv: noEnv})

	_, err := c.Get("database_password")
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = c.DisplayHash("database_password")
	assert.ErrorIs(t, err, ErrNotLoaded)

	assert.Nil(t, c.Secrets())
}

func TestClient_Get_UnknownPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.StoreFilename, testStoreYAML)
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	c := New(Settings{Getenv: noEnv})
	_, err := c.Load(context.Background(), dir)
	require.NoError(t, err)

	tests := []string{"nope", "redis", "redis.nope", "database_password.deeper"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := c.Get(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), fmt.Sprintf("%q", path))
		})
	}
}

func TestClient_DisplayHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.ReferencesFilename, `platform: google
gcp_project_id: p
secret-refs:
  - cast: token
    ref: token
`)

	fake := fakes.NewFakeProvider().
		WithValue(provider.Ref{Platform: provider.PlatformGoogle, Project: "p", Name: "token"}, "abc")

	c := New(Settings{Provider: fake, Getenv: noEnv})
	_, err := c.Load(context.Background(), dir)
	require.NoError(t, err)

	hash, err := c.DisplayHash("token")
	require.NoError(t, err)
	// SHA3-256("abc"), the NIST test vector.
	assert.Equal(t, "3a985da74fe225b2045c172d6bd390bd855f086e3e9d525b46bfe24511431532", hash)
}

func TestClient_DisplayHash_UsesRawValue(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.ReferencesFilename, `platform: google
gcp_project_id: p
secret-refs:
  - cast: port
    ref: port
    type: int
`)

	fake := fakes.NewFakeProvider().
		WithValue(provider.Ref{Platform: provider.PlatformGoogle, Project: "p", Name: "port"}, "6379")

	c := New(Settings{Provider: fake, Getenv: noEnv})
	_, err := c.Load(context.Background(), dir)
	require.NoError(t, err)

	hash, err := c.DisplayHash("port")
	require.NoError(t, err)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, mustHash(t, c, "port"), "hash is stable across calls")
}

func TestClient_Load_FailureKeepsPreviousTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.StoreFilename, testStoreYAML)
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	c := New(Settings{Getenv: noEnv})
	tree, err := c.Load(context.Background(), dir)
	require.NoError(t, err)

	// A directory with references but no store cannot load; the held tree
	// must survive the failed attempt.
	broken := t.TempDir()
	writeFile(t, broken, localstore.ReferencesFilename, testRefsYAML)
	_, err = c.Load(context.Background(), broken)
	require.Error(t, err)

	assert.Same(t, tree, c.Secrets())
	got, err := c.Get("database_password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestClient_TreeStaysMasked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, localstore.StoreFilename, testStoreYAML)
	writeFile(t, dir, localstore.ReferencesFilename, testRefsYAML)

	c := New(Settings{Getenv: noEnv})
	tree, err := c.Load(context.Background(), dir)
	require.NoError(t, err)

	rendered := fmt.Sprintf("%v %#v %s", tree, tree, tree)
	assert.NotContains(t, rendered, "hunter2")
	assert.NotContains(t, rendered, "redis-secret")
	assert.Contains(t, rendered, secrets.Mask)
}

func mustHash(t *testing.T, c *Client, path string) string {
	t.Helper()
	hash, err := c.DisplayHash(path)
	require.NoError(t, err)
	return hash
}
