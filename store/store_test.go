package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(dir string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, dbFile))
}

func openStore(t *testing.T, host string) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), host)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSecretRoundTrip(t *testing.T) {
	s := openStore(t, "cursor")

	require.NoError(t, s.SetSecret(SlotAPIKey, "k-123"))
	v, err := s.GetSecret(SlotAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "k-123", v)

	_, err = s.GetSecret(SlotEmail)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteSecret(SlotAPIKey))
	_, err = s.GetSecret(SlotAPIKey)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent slot is not an error.
	require.NoError(t, s.DeleteSecret(SlotAPIKey))
}

func TestSecretsAreEncryptedAtRest(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "cursor")
	require.NoError(t, err)

	secret := "very-secret-api-key-value"
	require.NoError(t, s.SetSecret(SlotAPIKey, secret))
	require.NoError(t, s.Close())

	// Raw database bytes must not contain the plaintext.
	data, err := readAll(dir)
	require.NoError(t, err)
	assert.NotContains(t, string(data), secret)
}

func TestHostNamespacing(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(dir, "vscode")
	require.NoError(t, err)
	require.NoError(t, a.SetSecret(SlotAPIKey, "vscode-key"))
	require.NoError(t, a.Close())

	b, err := Open(dir, "cursor")
	require.NoError(t, err)
	defer b.Close()

	_, err = b.GetSecret(SlotAPIKey)
	assert.ErrorIs(t, err, ErrNotFound, "hosts sharing a store must not see each other's slots")
}

func TestCredentialLifecycle(t *testing.T) {
	s := openStore(t, "cursor")

	assert.False(t, s.LoggedIn())

	cred := Credential{APIKey: "K", AccessToken: "T", Email: "a@b.com"}
	require.NoError(t, s.SaveCredential(cred))
	assert.True(t, s.LoggedIn())

	got, err := s.LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, cred, got)

	require.NoError(t, s.DeleteCredential())
	assert.False(t, s.LoggedIn())

	got, err = s.LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, Credential{}, got)
}

func TestPartialCredentialIsNotRepaired(t *testing.T) {
	s := openStore(t, "cursor")

	require.NoError(t, s.SetSecret(SlotAccessToken, "T"))
	assert.False(t, s.LoggedIn(), "token without API key is logged out")

	got, err := s.LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, Credential{AccessToken: "T"}, got)
}

func TestEnsureSessionID(t *testing.T) {
	s := openStore(t, "cursor")

	id1, err := s.EnsureSessionID()
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := s.EnsureSessionID()
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "session id must be stable while present")

	require.NoError(t, s.DeleteState(StateSessionID))
	id3, err := s.EnsureSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3, "explicit clear regenerates")
}

func TestStateRoundTrip(t *testing.T) {
	s := openStore(t, "cursor")

	require.NoError(t, s.SetState(StateOAuthNonce, "n-1"))
	v, err := s.GetState(StateOAuthNonce)
	require.NoError(t, err)
	assert.Equal(t, "n-1", v)

	require.NoError(t, s.DeleteState(StateOAuthNonce))
	_, err = s.GetState(StateOAuthNonce)
	assert.ErrorIs(t, err, ErrNotFound)
}
