// ABOUTME: In-memory credential store with PBKDF2 password hashing
// ABOUTME: Owns principal registration, password policy, and constant-time verification

package creds

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/crypto/pbkdf2"
)

// Credential store errors
var (
	ErrAlreadyExists   = errors.New("identifier already registered")
	ErrPolicyViolation = errors.New("identifier or password policy not met")
)

// PBKDF2 parameters. The iteration count is tuned so a single verification
// costs on the order of 100ms, which is the offline brute-force defense if
// the store is ever exfiltrated.
const (
	hashIterations = 120000
	hashKeyLen     = 64
	saltLen        = 16
)

// emailRegex matches address-shaped identifiers: local@domain.tld, no spaces.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PasswordRecord holds the salted, iterated hash of a secret.
// The secret itself is never retained.
type PasswordRecord struct {
	Salt       []byte
	Hash       []byte
	Iterations int
}

// Principal is a registered identity.
type Principal struct {
	Identifier string
	CreatedAt  time.Time
}

// Store holds registered principals keyed by normalized identifier.
type Store struct {
	mu         sync.RWMutex
	principals map[string]principalRecord
	logger     *slog.Logger

	// decoy is a fixed record hashed against when the identifier is unknown,
	// so unknown-identifier and wrong-password verifications exercise the
	// same code path with comparable latency.
	decoy PasswordRecord
}

type principalRecord struct {
	principal Principal
	password  PasswordRecord
}

// NewStore creates an empty credential store.
func NewStore() (*Store, error) {
	decoy, err := hashSecret("decoy-record-never-matches")
	if err != nil {
		return nil, err
	}
	return &Store{
		principals: make(map[string]principalRecord),
		logger:     slog.Default().With("component", "creds"),
		decoy:      decoy,
	}, nil
}

// Normalize lowercases and trims an identifier.
func Normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// ValidIdentifier reports whether the identifier is address-shaped.
func ValidIdentifier(identifier string) bool {
	return emailRegex.MatchString(identifier)
}

// ValidPassword reports whether the secret meets the password policy:
// length >= 12 with at least one uppercase letter, one lowercase letter,
// one digit, and one symbol.
func ValidPassword(secret string) bool {
	if len(secret) < 12 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range secret {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// Register validates the identifier and secret, hashes the secret, and
// stores a new principal. Returns ErrAlreadyExists if the identifier is
// taken and ErrPolicyViolation if validation fails. The hash computation
// runs outside the store lock.
func (s *Store) Register(identifier, secret string) (Principal, error) {
	id := Normalize(identifier)
	if !ValidIdentifier(id) || !ValidPassword(secret) {
		return Principal{}, ErrPolicyViolation
	}

	// Cheap pre-check so abusive duplicate registrations don't pay for a
	// full derivation. The authoritative check is under the write lock.
	s.mu.RLock()
	_, taken := s.principals[id]
	s.mu.RUnlock()
	if taken {
		return Principal{}, ErrAlreadyExists
	}

	record, err := hashSecret(secret)
	if err != nil {
		return Principal{}, err
	}

	p := Principal{Identifier: id, CreatedAt: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.principals[id]; taken {
		return Principal{}, ErrAlreadyExists
	}
	s.principals[id] = principalRecord{principal: p, password: record}

	s.logger.Info("principal registered", "identifier", id)
	return p, nil
}

// Verify recomputes the hash for the supplied secret and compares it in
// constant time against the stored record. Unknown identifiers return false
// after hashing against a decoy record, never early.
func (s *Store) Verify(identifier, secret string) bool {
	id := Normalize(identifier)

	s.mu.RLock()
	rec, ok := s.principals[id]
	s.mu.RUnlock()

	record := s.decoy
	if ok {
		record = rec.password
	}

	// Derivation happens outside any lock: it is the expensive part and
	// must not serialize unrelated requests.
	computed := pbkdf2.Key([]byte(secret), record.Salt, record.Iterations, len(record.Hash), sha512.New)
	match := subtle.ConstantTimeCompare(computed, record.Hash) == 1

	return ok && match
}

// Count returns the number of registered principals.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.principals)
}

// hashSecret derives a fresh PasswordRecord with a random salt.
func hashSecret(secret string) (PasswordRecord, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return PasswordRecord{}, err
	}
	hash := pbkdf2.Key([]byte(secret), salt, hashIterations, hashKeyLen, sha512.New)
	return PasswordRecord{Salt: salt, Hash: hash, Iterations: hashIterations}, nil
}
