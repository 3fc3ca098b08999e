package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/scrypt"

	"portfolio_service/internal/common"
)

const (
	credentialAlgorithm = "scrypt"
	credentialSeparator = "$"

	DefaultScryptCost = 1 << 14
	scryptBlockSize   = 8
	scryptParallelism = 1
	saltLength        = 16
	derivedKeyLength  = 64

	// upper bound for a cost read back from a stored credential
	maxScryptCost = 1 << 20
)

// Credential is a parsed password hash in the form scrypt$<cost>$<saltHex>$<hashHex>.
type Credential struct {
	Algorithm string
	Cost      int
	Salt      []byte
	Hash      []byte
}

func (c Credential) String() string {
	return strings.Join([]string{
		c.Algorithm,
		strconv.Itoa(c.Cost),
		hex.EncodeToString(c.Salt),
		hex.EncodeToString(c.Hash),
	}, credentialSeparator)
}

// ParseCredential splits a stored credential string. Any structural problem is
// reported as common.ErrValidation.
func ParseCredential(s string) (Credential, error) {
	const op = "auth.ParseCredential"

	parts := strings.Split(s, credentialSeparator)
	if len(parts) != 4 {
		return Credential{}, fmt.Errorf("%s: %w: expected 4 fields, got %d", op, common.ErrValidation, len(parts))
	}

	if parts[0] != credentialAlgorithm {
		return Credential{}, fmt.Errorf("%s: %w: unknown algorithm %q", op, common.ErrValidation, parts[0])
	}

	cost, err := strconv.Atoi(parts[1])
	if err != nil || cost < 2 || cost > maxScryptCost || cost&(cost-1) != 0 {
		return Credential{}, fmt.Errorf("%s: %w: bad cost %q", op, common.ErrValidation, parts[1])
	}

	salt, err := hex.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return Credential{}, fmt.Errorf("%s: %w: bad salt", op, common.ErrValidation)
	}

	hash, err := hex.DecodeString(parts[3])
	if err != nil || len(hash) != derivedKeyLength {
		return Credential{}, fmt.Errorf("%s: %w: bad hash", op, common.ErrValidation)
	}

	return Credential{Algorithm: parts[0], Cost: cost, Salt: salt, Hash: hash}, nil
}

// PasswordHasher derives scrypt credentials. Hash and Verify are CPU and memory
// bound; keep them off latency sensitive paths.
type PasswordHasher struct {
	cost int
}

type HasherOption func(*PasswordHasher)

// WithCost overrides the scrypt N parameter used for new credentials. Existing
// credentials keep verifying with the cost stored inside them.
func WithCost(n int) HasherOption {
	return func(h *PasswordHasher) {
		h.cost = n
	}
}

func NewPasswordHasher(opts ...HasherOption) *PasswordHasher {
	h := &PasswordHasher{cost: DefaultScryptCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash draws a fresh salt and returns the serialized credential.
func (h *PasswordHasher) Hash(password string) (string, error) {
	const op = "auth.PasswordHasher.Hash"

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	key, err := scrypt.Key([]byte(password), salt, h.cost, scryptBlockSize, scryptParallelism, derivedKeyLength)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return Credential{Algorithm: credentialAlgorithm, Cost: h.cost, Salt: salt, Hash: key}.String(), nil
}

// Verify re-derives the key with the cost and salt embedded in credential and
// compares in constant time. Malformed credentials verify as false.
func (h *PasswordHasher) Verify(password, credential string) bool {
	cred, err := ParseCredential(credential)
	if err != nil {
		return false
	}

	key, err := scrypt.Key([]byte(password), cred.Salt, cred.Cost, scryptBlockSize, scryptParallelism, derivedKeyLength)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, cred.Hash) == 1
}
