// Package store persists client credentials and plain state in a local
// BBolt database. Two logical stores share one file: a secret-grade
// bucket whose values are AES-256-GCM encrypted with a key derived from
// a machine-local keyfile, and a plain state bucket. Every key carries
// a host-application suffix so two editors sharing a machine never
// collide.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"go.etcd.io/bbolt"

	"github.com/qverisai/qveris-cli/internal/util"
	"github.com/qverisai/qveris-cli/internal/uuid"
)

var (
	bucketSecrets = []byte("secrets")
	bucketState   = []byte("state")
)

// ErrNotFound indicates the requested slot has no stored value.
var ErrNotFound = errors.New("not found")

// Secret-grade slot names.
const (
	SlotAPIKey      = "apiKey"
	SlotAccessToken = "accessToken"
	SlotEmail       = "email"
)

// Plain state slot names.
const (
	StateSessionID    = "sessionId"
	StateOAuthNonce   = "oauthState"
	StateLastSearchID = "lastSearchId"
	StateLastVersion  = "lastVersion"
	StateRulesVersion = "rulesVersion"
)

const (
	dbFile  = "qveris.db"
	keyFile = "store.key"

	storeKeyInfo = "qveris/secret-store/v1"
)

// Store is the credential store adapter.
type Store struct {
	db   *bbolt.DB
	key  *memguard.Enclave
	host string
}

// Open prepares the store under dataDir, creating the database, the
// keyfile and both buckets on first use. host becomes the namespace
// suffix for every slot.
func Open(dataDir, host string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	enclave, err := loadStoreKey(filepath.Join(dataDir, keyFile))
	if err != nil {
		return nil, err
	}

	db, err := bbolt.Open(filepath.Join(dataDir, dbFile), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketSecrets, bucketState} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating store buckets: %w", err)
	}

	return &Store{db: db, key: enclave, host: host}, nil
}

// loadStoreKey reads the machine-local key seed (creating it on first
// run) and derives the secret-bucket encryption key from it. The
// derived key lives in a memguard Enclave between uses.
func loadStoreKey(path string) (*memguard.Enclave, error) {
	seed, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		seed, err = util.RandomBytes(util.AESKeySize)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, seed, 0o600); err != nil {
			return nil, fmt.Errorf("writing store keyfile: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("reading store keyfile: %w", err)
	}

	derived, err := util.HKDF(seed, nil, []byte(storeKeyInfo))
	util.WipeBytes(seed)
	if err != nil {
		return nil, err
	}
	// NewEnclave wipes the source slice.
	return memguard.NewEnclave(derived), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Host returns the host-application discriminator this store was opened with.
func (s *Store) Host() string {
	return s.host
}

// slotKey namespaces a base slot name with the host discriminator.
func (s *Store) slotKey(base string) []byte {
	return []byte(base + "-" + s.host)
}

func (s *Store) seal(value string) ([]byte, error) {
	buf, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening store key: %w", err)
	}
	defer buf.Destroy()
	return util.EncryptAES([]byte(value), buf.Bytes())
}

func (s *Store) unseal(data []byte) (string, error) {
	buf, err := s.key.Open()
	if err != nil {
		return "", fmt.Errorf("opening store key: %w", err)
	}
	defer buf.Destroy()
	plain, err := util.DecryptAES(data, buf.Bytes())
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// SetSecret stores an encrypted value under the namespaced slot.
func (s *Store) SetSecret(base, value string) error {
	sealed, err := s.seal(value)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSecrets).Put(s.slotKey(base), sealed)
	})
}

// GetSecret retrieves and decrypts a slot value.
func (s *Store) GetSecret(base string) (string, error) {
	var sealed []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSecrets).Get(s.slotKey(base))
		if data == nil {
			return fmt.Errorf("secret %s: %w", base, ErrNotFound)
		}
		sealed = append([]byte(nil), data...)
		return nil
	})
	if err != nil {
		return "", err
	}
	return s.unseal(sealed)
}

// DeleteSecret removes a slot. Deleting an absent slot is not an error.
func (s *Store) DeleteSecret(base string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSecrets).Delete(s.slotKey(base))
	})
}

// SetState stores a plain state value under the namespaced slot.
func (s *Store) SetState(base, value string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Put(s.slotKey(base), []byte(value))
	})
}

// GetState retrieves a plain state value.
func (s *Store) GetState(base string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketState).Get(s.slotKey(base))
		if data == nil {
			return fmt.Errorf("state %s: %w", base, ErrNotFound)
		}
		value = string(data)
		return nil
	})
	return value, err
}

// DeleteState removes a plain state slot. Absent slots are not an error.
func (s *Store) DeleteState(base string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Delete(s.slotKey(base))
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func newUUID() string {
	return uuid.New()
}
