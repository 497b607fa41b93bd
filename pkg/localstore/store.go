package localstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/systmms/noctivault/pkg/envelope"
)

// SealOptions adjusts where SealFile writes and what it leaves behind.
type SealOptions struct {
	// Out overrides the destination; default is the encrypted sibling of the
	// plaintext store.
	Out string

	// RemovePlain deletes the plaintext store after a successful seal.
	RemovePlain bool

	// Force overwrites an existing destination.
	Force bool
}

// SealFile encrypts the plaintext store under base (a store directory or the
// plaintext file itself) and returns the path written. Refuses to overwrite
// an existing destination unless opts.Force is set; that failure satisfies
// errors.Is(err, fs.ErrExist).
func SealFile(base string, material *KeyMaterial, opts SealOptions) (string, error) {
	plainPath, err := resolvePlainPath(base)
	if err != nil {
		return "", err
	}
	outPath := opts.Out
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(plainPath), EncStoreFilename)
	}
	if !opts.Force && fileExists(outPath) {
		return "", fmt.Errorf("%s: %w", outPath, fs.ErrExist)
	}
	plaintext, err := os.ReadFile(plainPath)
	if err != nil {
		return "", fmt.Errorf("failed to read store file: %w", err)
	}
	sealed, err := material.Seal(plaintext)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, sealed, 0600); err != nil {
		return "", fmt.Errorf("failed to write encrypted store: %w", err)
	}
	if opts.RemovePlain {
		if err := os.Remove(plainPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to remove plaintext store: %w", err)
		}
	}
	return outPath, nil
}

// UnsealFile decrypts an encrypted store file and returns the plaintext.
func UnsealFile(encPath string, material *KeyMaterial) ([]byte, error) {
	data, err := os.ReadFile(encPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted store: %w", err)
	}
	return material.Unseal(data)
}

// Verify reports whether material opens the envelope at encPath. Header and
// authentication failures come back as a false verdict; anything else (an
// unreadable file, say) propagates as an error.
func Verify(encPath string, material *KeyMaterial) (bool, error) {
	data, err := os.ReadFile(encPath)
	if err != nil {
		return false, fmt.Errorf("failed to read encrypted store: %w", err)
	}
	if _, err := material.Unseal(data); err != nil {
		var headerErr envelope.InvalidEncHeaderError
		var decryptErr envelope.DecryptError
		if errors.As(err, &headerErr) || errors.As(err, &decryptErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// resolvePlainPath locates the plaintext store for sealing. Only the
// canonical store file name is accepted.
func resolvePlainPath(base string) (string, error) {
	info, err := os.Stat(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve store file: %w", err)
	}
	if info.IsDir() {
		plain := filepath.Join(base, StoreFilename)
		if !fileExists(plain) {
			return "", fmt.Errorf("no %s in %s: %w", StoreFilename, base, fs.ErrNotExist)
		}
		return plain, nil
	}
	if filepath.Base(base) != StoreFilename {
		return "", fmt.Errorf("unsupported store file name: %s", filepath.Base(base))
	}
	return base, nil
}
