// Package localstore locates, decrypts, and parses the on-disk secret store.
//
// A store directory holds up to three files: the plaintext store
// (noctivault.local-store.yaml), its encrypted sibling
// (noctivault.local-store.yaml.enc), and the reference document
// (noctivault.yaml). When both store forms exist the encrypted one always
// wins. Key material for the encrypted form is resolved through a fixed
// precedence chain over explicit configuration, environment variables, and
// well-known file locations; see ResolveKeyMaterial.
package localstore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/systmms/noctivault/pkg/schema"
)

// Store file names. SealFile and ResolveSource classify files strictly by
// these names; arbitrary YAML paths are rejected rather than guessed at.
const (
	StoreFilename      = "noctivault.local-store.yaml"
	EncStoreFilename   = "noctivault.local-store.yaml.enc"
	ReferencesFilename = "noctivault.yaml"
)

// Environment variables consulted by the key resolution chain.
const (
	EnvKeyFile    = "NOCTIVAULT_LOCAL_KEY_FILE"
	EnvPassphrase = "NOCTIVAULT_LOCAL_PASSPHRASE"
)

const keyFilename = "local.key"

// SourceKind distinguishes the two on-disk store forms.
type SourceKind string

const (
	SourceEncrypted SourceKind = "enc"
	SourcePlain     SourceKind = "plain"
)

// Source is a concrete store file chosen by ResolveSource.
type Source struct {
	Kind SourceKind
	Path string
}

// ResolveSource picks the store file to load. A directory is searched for
// the encrypted store first, then the plaintext one. An explicit file path
// is classified by its name. Missing files surface as fs.ErrNotExist.
func ResolveSource(base string) (Source, error) {
	info, err := os.Stat(base)
	if err != nil {
		return Source{}, fmt.Errorf("failed to resolve store source: %w", err)
	}
	if info.IsDir() {
		if enc := filepath.Join(base, EncStoreFilename); fileExists(enc) {
			return Source{Kind: SourceEncrypted, Path: enc}, nil
		}
		if plain := filepath.Join(base, StoreFilename); fileExists(plain) {
			return Source{Kind: SourcePlain, Path: plain}, nil
		}
		return Source{}, fmt.Errorf("no %s or %s in %s: %w", EncStoreFilename, StoreFilename, base, fs.ErrNotExist)
	}
	switch filepath.Base(base) {
	case EncStoreFilename:
		return Source{Kind: SourceEncrypted, Path: base}, nil
	case StoreFilename:
		return Source{Kind: SourcePlain, Path: base}, nil
	}
	return Source{}, fmt.Errorf("unsupported store file name: %s", filepath.Base(base))
}

// Load resolves the store source under dir, decrypts it if necessary, and
// parses it into a typed store document. getenv defaults to os.Getenv; tests
// inject a fake to keep the key resolution chain hermetic.
func Load(dir string, enc EncSettings, getenv func(string) string) (*schema.StoreFile, error) {
	src, err := ResolveSource(dir)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if src.Kind == SourceEncrypted {
		material, err := ResolveKeyMaterial(enc, filepath.Dir(src.Path), getenv)
		if err != nil {
			return nil, err
		}
		defer material.Destroy()
		raw, err = material.Unseal(raw)
		if err != nil {
			return nil, err
		}
	}
	store, err := schema.ParseStore(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Path, err)
	}
	return store, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MissingKeyMaterialError reports that the key resolution chain found no
// usable key material for an encrypted store.
type MissingKeyMaterialError struct {
	Mode Mode
}

func (e MissingKeyMaterialError) Error() string {
	if e.Mode == ModePassphrase {
		return "no passphrase available: configure one or set " + EnvPassphrase
	}
	return "no key file found: configure a path, set " + EnvKeyFile +
		", or place " + keyFilename + " next to the store"
}

// MissingDependencyError reports that a configured key source depends on a
// facility this environment does not provide, such as an OS keyring backend.
type MissingDependencyError struct {
	Dependency string
	Err        error
}

func (e MissingDependencyError) Error() string {
	return fmt.Sprintf("%s is unavailable: %v", e.Dependency, e.Err)
}

func (e MissingDependencyError) Unwrap() error { return e.Err }
