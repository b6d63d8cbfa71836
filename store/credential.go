package store

import (
	"go.etcd.io/bbolt"
)

// Credential is the persisted login state. APIKey presence is the sole
// source of truth for "is logged in"; AccessToken and Email are
// auxiliary.
type Credential struct {
	APIKey      string
	AccessToken string
	Email       string
}

// SaveCredential writes all three slots in one transaction so a login
// never leaves a partially written credential behind.
func (s *Store) SaveCredential(c Credential) error {
	slots := map[string]string{
		SlotAPIKey:      c.APIKey,
		SlotAccessToken: c.AccessToken,
		SlotEmail:       c.Email,
	}
	sealed := make(map[string][]byte, len(slots))
	for base, value := range slots {
		data, err := s.seal(value)
		if err != nil {
			return err
		}
		sealed[base] = data
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSecrets)
		for base, data := range sealed {
			if err := b.Put(s.slotKey(base), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadCredential reads whatever slots are present. Missing slots come
// back empty; a partially present credential is reported as-is and
// never auto-repaired.
func (s *Store) LoadCredential() (Credential, error) {
	var c Credential
	fields := []struct {
		base string
		dst  *string
	}{
		{SlotAPIKey, &c.APIKey},
		{SlotAccessToken, &c.AccessToken},
		{SlotEmail, &c.Email},
	}
	for _, f := range fields {
		v, err := s.GetSecret(f.base)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return Credential{}, err
		}
		*f.dst = v
	}
	return c, nil
}

// DeleteCredential removes all three slots atomically.
func (s *Store) DeleteCredential() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSecrets)
		for _, base := range []string{SlotAPIKey, SlotAccessToken, SlotEmail} {
			if err := b.Delete(s.slotKey(base)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoggedIn reports whether a usable API key is stored.
func (s *Store) LoggedIn() bool {
	key, err := s.GetSecret(SlotAPIKey)
	return err == nil && key != ""
}

// EnsureSessionID returns the installation-scoped session identifier,
// generating and persisting one if absent. The value is never
// regenerated while present.
func (s *Store) EnsureSessionID() (string, error) {
	id, err := s.GetState(StateSessionID)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !isNotFound(err) {
		return "", err
	}
	id = newUUID()
	if err := s.SetState(StateSessionID, id); err != nil {
		return "", err
	}
	return id, nil
}
