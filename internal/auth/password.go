package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 iteration count for new hashes.
	DefaultIterations = 100_000
	// MinIterations is the lowest iteration count accepted for new hashes.
	MinIterations = 10_000

	saltLength = 16
	keyLength  = 32
)

// PasswordHash is the storable result of hashing a password.
type PasswordHash struct {
	Hash       string
	Salt       string
	Iterations int
}

// Hasher derives and verifies salted PBKDF2-HMAC-SHA256 password hashes.
type Hasher struct {
	iterations int
}

// NewHasher returns a hasher that uses iterations for new hashes.
func NewHasher(iterations int) (*Hasher, error) {
	if iterations < MinIterations {
		return nil, fmt.Errorf("iteration count %d below minimum %d", iterations, MinIterations)
	}
	return &Hasher{iterations: iterations}, nil
}

// Iterations returns the count applied to new hashes.
func (h *Hasher) Iterations() int {
	return h.iterations
}

// Hash derives a hash for password. A fresh random salt is generated when salt is nil.
func (h *Hasher) Hash(password string, salt []byte) (PasswordHash, error) {
	if salt == nil {
		salt = make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return PasswordHash{}, fmt.Errorf("generate salt: %w", err)
		}
	}

	key := derive(password, salt, h.iterations)
	return PasswordHash{
		Hash:       base64.StdEncoding.EncodeToString(key),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Iterations: h.iterations,
	}, nil
}

// Verify recomputes the derivation with the stored salt and iteration count and
// compares in constant time. Malformed stored values never verify.
func (h *Hasher) Verify(password, storedHash, storedSalt string, iterations int) bool {
	if iterations <= 0 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil || len(expected) == 0 {
		return false
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// NeedsRehash reports whether a stored hash uses fewer iterations than configured.
func (h *Hasher) NeedsRehash(iterations int) bool {
	return iterations < h.iterations
}

func derive(password string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
}
