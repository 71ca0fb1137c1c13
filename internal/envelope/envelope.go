// internal/envelope/envelope.go
//
// Envelope encryption for QR payload content (AES-256-GCM).
//
// Context
// -------
// Payloads are never persisted in plaintext.  Encrypt serializes the value
// to JSON and seals it under a key derived *per record* from the process
// master secret:
//
//	opaque = base64( salt(16) || nonce(12) || ciphertext+tag )
//
// The key is PBKDF2-HMAC-SHA256 over the hex encoding of the master secret
// with the record's random salt and 480,000 iterations.  A fresh salt per
// Encrypt call bounds the blast radius of any leaked derived key to one
// record and keeps precomputation against the master secret expensive.
//
// Decrypt is total: malformed base64, a short blob, or a GCM tag mismatch
// all map to "absent" (false), never an error.  Callers own the fallback
// chain for records that predate encryption.
//
// Notes
// -----
// • No associated data; the blob carries no metadata beyond salt and nonce.
// • Oxford commas, two spaces after periods.

package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLen    = 16
	nonceLen   = 12
	keyLen     = 32
	iterations = 480000
)

// SecretLen is the required master-secret length in bytes.
const SecretLen = 32

// ErrBadSecret is returned by New when the master secret is missing or has
// the wrong length.  Startup treats this as fatal; there is no ephemeral
// fallback key because one would silently break multi-process deployments.
var ErrBadSecret = errors.New("envelope: master secret must be 32 bytes of hex")

// Envelope seals and opens payload blobs.  Safe for concurrent use; the
// only state is the immutable master secret.
type Envelope struct {
	secretHex string
}

// New builds an Envelope from a hex-encoded 32-byte master secret.
func New(masterSecretHex string) (*Envelope, error) {
	raw, err := hex.DecodeString(masterSecretHex)
	if err != nil || len(raw) != SecretLen {
		return nil, ErrBadSecret
	}
	// The KDF password is the canonical lowercase hex form, so differently
	// cased operator input derives the same keys.
	return &Envelope{secretHex: hex.EncodeToString(raw)}, nil
}

// Encrypt serializes v to JSON and returns the opaque blob.  It fails only
// on unserializable input or RNG exhaustion, both programmer/process-level
// conditions rather than data-dependent ones.
func (e *Envelope) Encrypt(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("envelope: marshal payload: %w", err)
	}

	buf := make([]byte, saltLen+nonceLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("envelope: rng: %w", err)
	}
	salt, nonce := buf[:saltLen], buf[saltLen:]

	gcm, err := e.aead(salt)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	combined := make([]byte, 0, saltLen+nonceLen+len(sealed))
	combined = append(combined, salt...)
	combined = append(combined, nonce...)
	combined = append(combined, sealed...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// Decrypt opens an opaque blob into v.  The boolean result is false when
// the blob is empty, malformed, or fails authentication; v is untouched in
// that case.
func (e *Envelope) Decrypt(opaque string, v any) bool {
	if opaque == "" {
		return false
	}
	combined, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil || len(combined) <= saltLen+nonceLen {
		return false
	}
	salt := combined[:saltLen]
	nonce := combined[saltLen : saltLen+nonceLen]
	ciphertext := combined[saltLen+nonceLen:]

	gcm, err := e.aead(salt)
	if err != nil {
		return false
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return false
	}
	return json.Unmarshal(plaintext, v) == nil
}

// aead derives the per-record key and wraps it in an AES-GCM cipher.
func (e *Envelope) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(e.secretHex), salt, iterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("envelope: cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
