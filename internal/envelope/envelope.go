// Package envelope implements the key-hashing and authenticated-encryption
// layer wrapped transparently around every cache back-end.
//
// Key hashing bounds back-end key length and sanitises characters that would
// be illegal in filenames or memcached keys. Value encryption is sealed with
// an AEAD cipher keyed by a passphrase-derived 256-bit key, so back-ends
// never need to know whether a deployment is encrypted.
//
// We use XChaCha20-Poly1305 (golang.org/x/crypto/chacha20poly1305) rather
// than hand-rolling AES-GCM off the standard library: its 24-byte nonce
// removes the need for a counter or a CSPRNG-collision argument at low nonce
// counts, and an AEAD cipher is all an envelope like this one needs.
//
// © 2025 oauth2-cache authors. MIT License.
package envelope

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNoPassphrase is returned by New when encryption is requested but no
// passphrase was configured. A deployment that wants encryption must supply
// its own passphrase; there is no built-in default to fall back to.
var ErrNoPassphrase = errors.New("envelope: encryption requested without a passphrase")

// ErrAuthFailed is returned internally by Open on a failed AEAD
// authentication. Callers (the façade) MUST treat this as a cache miss, not
// as corruption surfaced to the end user.
var ErrAuthFailed = errors.New("envelope: authentication failed")

// Envelope applies key hashing and, optionally, value encryption uniformly
// above a back-end. An Envelope from New("none", false, "") is a pure
// pass-through.
type Envelope struct {
	hashAlgo string
	encrypt  bool
	aead     interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
		Overhead() int
	}
}

// New constructs an Envelope. hashAlgo is "none" or "sha256" (
// names sha256 as the default and the only other hash any host crypto
// library need support for this implementation). If encrypt is true,
// passphrase must be non-empty.
func New(hashAlgo string, encrypt bool, passphrase string) (*Envelope, error) {
	if hashAlgo == "" {
		hashAlgo = "sha256"
	}
	if hashAlgo != "none" && hashAlgo != "sha256" {
		return nil, fmt.Errorf("envelope: unsupported key_hash_algo %q", hashAlgo)
	}

	e := &Envelope{hashAlgo: hashAlgo}
	if !encrypt {
		return e, nil
	}
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}

	key := deriveKey(passphrase)
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("envelope: constructing AEAD: %w", err)
	}
	e.encrypt = true
	e.aead = aead
	return e, nil
}

// deriveKey derives a 256-bit key deterministically from passphrase via
// SHA-256, exactly as documents ("e.g., SHA-256 of passphrase;
// documented and fixed").
func deriveKey(passphrase string) [32]byte {
	return sha256.Sum256([]byte(passphrase))
}

// HashKey applies the configured key-hash algorithm to key. With "none" the
// raw key is returned unchanged and the caller (back-end) MUST itself
// enforce any max-key-size limit.
func (e *Envelope) HashKey(key string) string {
	if e == nil || e.hashAlgo == "none" {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Encrypted reports whether this Envelope seals values before delegating to
// the back-end.
func (e *Envelope) Encrypted() bool { return e != nil && e.encrypt }

// Seal encrypts plaintext (if encryption is enabled) and returns the opaque
// payload every back-end stores verbatim: nonce || ciphertext || tag,
// base64url-encoded so it round-trips through text-only transports
// (memcached, Redis strings, filesystem-safe bytes).
func (e *Envelope) Seal(plaintext []byte) ([]byte, error) {
	if e == nil || !e.encrypt {
		return plaintext, nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("envelope: generating nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(sealed)))
	base64.RawURLEncoding.Encode(out, sealed)
	return out, nil
}

// Open reverses Seal. A failed authentication (tampered/corrupt ciphertext,
// or a passphrase mismatch between writer and reader) returns ErrAuthFailed;
// it is the caller's responsibility to downgrade that into a cache miss and
// log it at warning level, never to surface it as a hit or as corruption.
func (e *Envelope) Open(sealed []byte) ([]byte, error) {
	if e == nil || !e.encrypt {
		return sealed, nil
	}

	raw := make([]byte, base64.RawURLEncoding.DecodedLen(len(sealed)))
	n, err := base64.RawURLEncoding.Decode(raw, sealed)
	if err != nil {
		return nil, ErrAuthFailed
	}
	raw = raw[:n]

	ns := e.aead.NonceSize()
	if len(raw) < ns {
		return nil, ErrAuthFailed
	}
	nonce, ciphertext := raw[:ns], raw[ns:]

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// ConstantTimeEqual compares two byte slices without leaking timing
// information - used by back-ends that need to compare hashed keys pulled
// off the wire against a local candidate.
func ConstantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
