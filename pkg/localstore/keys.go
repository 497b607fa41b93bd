package localstore

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"

	"github.com/systmms/noctivault/internal/secure"
	"github.com/systmms/noctivault/pkg/envelope"
)

// Mode selects which envelope profile key resolution targets.
type Mode string

const (
	// ModeAuto picks passphrase mode when a passphrase is configured or its
	// environment variable is set, key-file mode otherwise.
	ModeAuto       Mode = ""
	ModeKeyFile    Mode = "key-file"
	ModePassphrase Mode = "passphrase"
)

// EncSettings configures how key material for an encrypted store is found.
// The zero value resolves through the default key-file chain.
type EncSettings struct {
	// Mode forces a profile instead of inferring one from the settings.
	Mode Mode

	// KeyFile is an explicit key file path, the first file candidate in the
	// chain.
	KeyFile string

	// Passphrase supplies the passphrase directly and switches resolution to
	// passphrase mode unless Mode says otherwise.
	Passphrase string

	// KeyringService and KeyringAccount name an OS keyring entry holding the
	// base64-encoded 256-bit key. When set, the entry is consulted before
	// any file candidate.
	KeyringService string
	KeyringAccount string
}

// KeyMaterial is the secret input to envelope operations: a raw 256-bit key
// or a passphrase, held in a locked buffer until Destroy.
type KeyMaterial struct {
	mode Mode
	buf  *secure.Buffer
}

// KeyMaterialFromBytes wraps a raw key. The input slice is wiped.
func KeyMaterialFromBytes(key []byte) *KeyMaterial {
	return &KeyMaterial{mode: ModeKeyFile, buf: secure.NewBuffer(key)}
}

// KeyMaterialFromFile reads a raw key file.
func KeyMaterialFromFile(path string) (*KeyMaterial, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return KeyMaterialFromBytes(key), nil
}

// KeyMaterialFromPassphrase wraps a passphrase.
func KeyMaterialFromPassphrase(passphrase string) *KeyMaterial {
	return &KeyMaterial{mode: ModePassphrase, buf: secure.NewBuffer([]byte(passphrase))}
}

// Seal encrypts plaintext under this material's envelope profile.
func (m *KeyMaterial) Seal(plaintext []byte) ([]byte, error) {
	var sealed []byte
	err := m.buf.WithBytes(func(b []byte) error {
		var err error
		if m.mode == ModePassphrase {
			sealed, err = envelope.SealWithPassphrase(plaintext, string(b))
		} else {
			sealed, err = envelope.SealWithKey(plaintext, b)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

// Unseal decrypts an envelope produced under the matching profile.
func (m *KeyMaterial) Unseal(data []byte) ([]byte, error) {
	var plaintext []byte
	err := m.buf.WithBytes(func(b []byte) error {
		var err error
		if m.mode == ModePassphrase {
			plaintext, err = envelope.UnsealWithPassphrase(data, string(b))
		} else {
			plaintext, err = envelope.UnsealWithKey(data, b)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}

// Destroy wipes the held key material. The KeyMaterial is unusable after.
func (m *KeyMaterial) Destroy() {
	m.buf.Destroy()
}

// ResolveKeyMaterial locates key material for an encrypted store under the
// precedence rules.
//
// Key-file mode: a configured keyring entry, the configured key file path,
// $NOCTIVAULT_LOCAL_KEY_FILE, local.key next to the store, then the
// user-level default key path. The first existing candidate wins; a missing
// keyring entry or file just moves the chain along.
//
// Passphrase mode (only when configured or $NOCTIVAULT_LOCAL_PASSPHRASE is
// set): the configured passphrase, then the environment variable.
//
// No candidate at all yields MissingKeyMaterialError. An unusable keyring
// backend yields MissingDependencyError without falling through, since that
// is an environment defect rather than absence.
func ResolveKeyMaterial(enc EncSettings, storeDir string, getenv func(string) string) (*KeyMaterial, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	mode := enc.Mode
	if mode == ModeAuto {
		if enc.Passphrase != "" || getenv(EnvPassphrase) != "" {
			mode = ModePassphrase
		} else {
			mode = ModeKeyFile
		}
	}

	if mode == ModePassphrase {
		if enc.Passphrase != "" {
			return KeyMaterialFromPassphrase(enc.Passphrase), nil
		}
		if pw := getenv(EnvPassphrase); pw != "" {
			return KeyMaterialFromPassphrase(pw), nil
		}
		return nil, MissingKeyMaterialError{Mode: ModePassphrase}
	}

	if enc.KeyringService != "" {
		material, err := keyringKeyMaterial(enc.KeyringService, enc.KeyringAccount)
		if err == nil {
			return material, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			return nil, err
		}
	}
	for _, candidate := range keyFileCandidates(enc.KeyFile, storeDir, getenv) {
		if fileExists(candidate) {
			return KeyMaterialFromFile(candidate)
		}
	}
	return nil, MissingKeyMaterialError{Mode: ModeKeyFile}
}

// keyFileCandidates returns key file paths in precedence order.
func keyFileCandidates(configured, storeDir string, getenv func(string) string) []string {
	candidates := make([]string, 0, 4)
	if configured != "" {
		candidates = append(candidates, configured)
	}
	if p := getenv(EnvKeyFile); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, filepath.Join(storeDir, keyFilename))
	if p := defaultKeyPath(getenv); p != "" {
		candidates = append(candidates, p)
	}
	return candidates
}

// defaultKeyPath is the user-level fallback, $HOME/.config/noctivault/local.key.
// os.UserConfigDir covers platforms where HOME is not the convention.
func defaultKeyPath(getenv func(string) string) string {
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "noctivault", keyFilename)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "noctivault", keyFilename)
	}
	return ""
}

func keyringKeyMaterial(service, account string) (*KeyMaterial, error) {
	entry, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, err
		}
		return nil, MissingDependencyError{Dependency: "OS keyring", Err: err}
	}
	key, err := base64.StdEncoding.DecodeString(entry)
	if err != nil {
		return nil, fmt.Errorf("keyring entry %s/%s is not base64: %w", service, account, err)
	}
	return KeyMaterialFromBytes(key), nil
}

// GenerateKey writes a fresh random 256-bit key to path, creating parent
// directories with owner-only permissions. An empty path selects the
// user-level default location. Returns the path written.
func GenerateKey(path string) (string, error) {
	if path == "" {
		path = defaultKeyPath(os.Getenv)
		if path == "" {
			return "", errors.New("cannot determine default key path")
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("failed to create key directory: %w", err)
	}
	key := make([]byte, envelope.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return "", fmt.Errorf("failed to write key file: %w", err)
	}
	return path, nil
}
