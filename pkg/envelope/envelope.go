// Package envelope implements the binary at-rest format for the local mock
// store. Payloads are sealed with AES-256-GCM under one of two profiles: a
// key-file profile keyed by a raw 256-bit key, and a passphrase profile
// whose key is derived with Argon2id from parameters carried in the header.
// Framing problems (bad magic, wrong mode tag, unknown KDF, truncation)
// surface as InvalidEncHeaderError; authentication failures (tampering,
// wrong key, wrong passphrase) surface as DecryptError. The two are never
// conflated.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Wire layout constants. Byte offsets and field widths are a compatibility
// contract: existing sealed stores must stay readable.
//
//	key-file:   MAGIC | nonce(12) | ciphertext+tag
//	passphrase: MAGIC | 0x01 | kdfId | timeCost | parallelism |
//	            memoryKiB(4 BE) | saltLen | salt | nonce(12) | ciphertext+tag
//
// MAGIC is the AAD for both profiles. Key-file unseal also accepts a mode
// byte 0x00 between MAGIC and the nonce.
const (
	magic = "NVLE1"

	modeKeyFile    = 0x00
	modePassphrase = 0x01

	kdfArgon2id = 0x01

	nonceSize = 12

	// KeySize is the raw key length for the key-file profile and the
	// derived key length for the passphrase profile.
	KeySize = 32
)

// InvalidEncHeaderError reports an envelope whose framing cannot be parsed.
type InvalidEncHeaderError struct {
	Reason string
}

func (e InvalidEncHeaderError) Error() string { return e.Reason }

// DecryptError reports an AEAD authentication failure.
type DecryptError struct{}

func (e DecryptError) Error() string { return "decryption failed" }

// Argon2Params are the Argon2id cost parameters recorded in a passphrase
// header. Memory is in KiB.
type Argon2Params struct {
	Time        uint8
	MemoryKiB   uint32
	Parallelism uint8
	SaltLen     uint8
}

// DefaultArgon2Params returns the parameters written by SealWithPassphrase:
// 2 passes over 64 MiB with a single lane and a 16-byte salt.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 2, MemoryKiB: 64 * 1024, Parallelism: 1, SaltLen: 16}
}

// SealWithKey seals plaintext under a raw 256-bit key. The nonce is freshly
// random on every call.
func SealWithKey(plaintext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, len(magic)+nonceSize+len(plaintext)+aead.Overhead())
	out = append(out, magic...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, []byte(magic)), nil
}

// UnsealWithKey opens a key-file envelope. A mode byte 0x00 after the magic
// is skipped; a passphrase mode byte is rejected as the wrong profile. A
// byte that looks like a mode tag can equally be the first byte of a legacy
// nonce, so when the tagged read fails to authenticate the legacy layout is
// tried before giving up.
func UnsealWithKey(data, key []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(magic)) {
		return nil, InvalidEncHeaderError{Reason: "missing or invalid magic header"}
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	idx := len(magic)
	if len(data) > idx && data[idx] == modePassphrase {
		if plaintext, err := openKeyEnvelopeAt(aead, data, idx); err == nil {
			return plaintext, nil
		}
		return nil, InvalidEncHeaderError{Reason: "not key-file mode payload"}
	}
	if len(data) > idx && data[idx] == modeKeyFile {
		plaintext, taggedErr := openKeyEnvelopeAt(aead, data, idx+1)
		if taggedErr == nil {
			return plaintext, nil
		}
		if plaintext, err := openKeyEnvelopeAt(aead, data, idx); err == nil {
			return plaintext, nil
		}
		return nil, taggedErr
	}
	return openKeyEnvelopeAt(aead, data, idx)
}

func openKeyEnvelopeAt(aead cipher.AEAD, data []byte, idx int) ([]byte, error) {
	if len(data) < idx+nonceSize {
		return nil, InvalidEncHeaderError{Reason: "truncated envelope"}
	}
	nonce := data[idx : idx+nonceSize]
	ct := data[idx+nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ct, []byte(magic))
	if err != nil {
		return nil, DecryptError{}
	}
	return plaintext, nil
}

// SealWithPassphrase seals plaintext under a key derived from the
// passphrase with the default Argon2id parameters.
func SealWithPassphrase(plaintext []byte, passphrase string) ([]byte, error) {
	return SealWithPassphraseParams(plaintext, passphrase, DefaultArgon2Params())
}

// SealWithPassphraseParams seals plaintext under explicit Argon2id
// parameters, which are recorded in the header for unseal. Salt and nonce
// are freshly random on every call.
func SealWithPassphraseParams(plaintext []byte, passphrase string, params Argon2Params) ([]byte, error) {
	if params.Time < 1 {
		return nil, fmt.Errorf("argon2 time cost must be >= 1")
	}
	if params.Parallelism < 1 {
		return nil, fmt.Errorf("argon2 parallelism must be >= 1")
	}
	if params.SaltLen < 1 {
		return nil, fmt.Errorf("salt length must be >= 1")
	}

	salt := make([]byte, int(params.SaltLen))
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, uint32(params.Time), params.MemoryKiB, params.Parallelism, KeySize)
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 0, len(magic)+8+int(params.SaltLen)+nonceSize)
	header = append(header, magic...)
	header = append(header, modePassphrase, kdfArgon2id, params.Time, params.Parallelism)
	header = binary.BigEndian.AppendUint32(header, params.MemoryKiB)
	header = append(header, params.SaltLen)
	header = append(header, salt...)
	header = append(header, nonce...)
	return aead.Seal(header, nonce, plaintext, []byte(magic)), nil
}

// UnsealWithPassphrase opens a passphrase envelope, deriving the key with
// the Argon2id parameters carried in the header.
func UnsealWithPassphrase(data []byte, passphrase string) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(magic)) {
		return nil, InvalidEncHeaderError{Reason: "missing or invalid magic header"}
	}
	idx := len(magic)
	if len(data) <= idx || data[idx] != modePassphrase {
		return nil, InvalidEncHeaderError{Reason: "not passphrase-encoded payload"}
	}
	idx++

	if len(data) < idx+1 {
		return nil, InvalidEncHeaderError{Reason: "truncated passphrase header"}
	}
	if data[idx] != kdfArgon2id {
		return nil, InvalidEncHeaderError{Reason: "unsupported KDF id"}
	}
	idx++

	if len(data) < idx+7 {
		return nil, InvalidEncHeaderError{Reason: "truncated passphrase header"}
	}
	timeCost := uint32(data[idx])
	parallelism := data[idx+1]
	memoryKiB := binary.BigEndian.Uint32(data[idx+2 : idx+6])
	saltLen := int(data[idx+6])
	idx += 7
	if timeCost < 1 || parallelism < 1 {
		return nil, InvalidEncHeaderError{Reason: "invalid KDF parameters"}
	}

	if len(data) < idx+saltLen+nonceSize {
		return nil, InvalidEncHeaderError{Reason: "truncated passphrase header"}
	}
	salt := data[idx : idx+saltLen]
	nonce := data[idx+saltLen : idx+saltLen+nonceSize]
	ct := data[idx+saltLen+nonceSize:]

	key := argon2.IDKey([]byte(passphrase), salt, timeCost, memoryKiB, parallelism, KeySize)
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ct, []byte(magic))
	if err != nil {
		return nil, DecryptError{}
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
