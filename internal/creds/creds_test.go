// ABOUTME: Tests for the credential store
// ABOUTME: Covers password policy, registration conflicts, and verification paths

package creds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPassword(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   bool
	}{
		{"meets policy", "StrongP@ssw0rd1", true},
		{"too short", "Sh0rt!aB", false},
		{"no uppercase", "weakp@ssw0rd11", false},
		{"no lowercase", "WEAKP@SSW0RD11", false},
		{"no digit", "WeakPassword!!", false},
		{"no symbol", "WeakPassword11", false},
		{"exactly twelve", "Abcdefghij1!", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPassword(tt.secret))
		})
	}
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("alice@example.com"))
	assert.False(t, ValidIdentifier("alice"))
	assert.False(t, ValidIdentifier("alice@example"))
	assert.False(t, ValidIdentifier("a lice@example.com"))
	assert.False(t, ValidIdentifier(""))
}

func TestStore_Register(t *testing.T) {
	store, err := NewStore()
	require.NoError(t, err)

	p, err := store.Register("Alice@Example.COM", "StrongP@ssw0rd1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", p.Identifier)
	assert.Equal(t, 1, store.Count())
}

func TestStore_Register_Duplicate(t *testing.T) {
	store, err := NewStore()
	require.NoError(t, err)

	_, err = store.Register("alice@example.com", "StrongP@ssw0rd1")
	require.NoError(t, err)

	// Same identifier, different casing: never silently overwritten.
	_, err = store.Register("ALICE@example.com", "OtherP@ssw0rd22")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, 1, store.Count())
}

func TestStore_Register_PolicyViolation(t *testing.T) {
	store, err := NewStore()
	require.NoError(t, err)

	_, err = store.Register("not-an-address", "StrongP@ssw0rd1")
	assert.ErrorIs(t, err, ErrPolicyViolation)

	_, err = store.Register("alice@example.com", "weak")
	assert.ErrorIs(t, err, ErrPolicyViolation)

	assert.Equal(t, 0, store.Count())
}

func TestStore_Verify(t *testing.T) {
	store, err := NewStore()
	require.NoError(t, err)

	_, err = store.Register("alice@example.com", "StrongP@ssw0rd1")
	require.NoError(t, err)

	assert.True(t, store.Verify("alice@example.com", "StrongP@ssw0rd1"))
	assert.True(t, store.Verify("ALICE@example.com", "StrongP@ssw0rd1"), "identifier lookup is case-insensitive")
	assert.False(t, store.Verify("alice@example.com", "WrongP@ssw0rd1"))
}

func TestStore_Verify_UnknownIdentifier(t *testing.T) {
	store, err := NewStore()
	require.NoError(t, err)

	// Unknown identifiers return false, never an error, and run the same
	// derivation path as a wrong-password check.
	assert.False(t, store.Verify("nobody@example.com", "StrongP@ssw0rd1"))
}

func TestHashSecret_RandomSalt(t *testing.T) {
	a, err := hashSecret("StrongP@ssw0rd1")
	require.NoError(t, err)
	b, err := hashSecret("StrongP@ssw0rd1")
	require.NoError(t, err)

	assert.Len(t, a.Salt, saltLen)
	assert.Len(t, a.Hash, hashKeyLen)
	assert.Equal(t, hashIterations, a.Iterations)
	assert.NotEqual(t, a.Salt, b.Salt, "each record gets a fresh salt")
	assert.NotEqual(t, a.Hash, b.Hash)
}
