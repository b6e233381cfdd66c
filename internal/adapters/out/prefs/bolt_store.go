// Package prefs keeps small per-device settings in a bbolt file.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	userdom "sneakhead/internal/domain/user"
)

// BoltStore implements user.PreferenceStore. Each namespace is a bucket.
type BoltStore struct {
	db *bolt.DB
}

// Open creates the file (and its directory) when missing.
func Open(path string) (*BoltStore, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("prefs: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("prefs: mkdir: %w", err)
	}
	db, err := bolt.Open(p, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("prefs: open %s: %w", p, err)
	}
	return &BoltStore{db: db}, nil
}

var _ userdom.PreferenceStore = (*BoltStore)(nil)

func (s *BoltStore) GetString(namespace, key string) (string, bool, error) {
	var (
		out   string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		out, found = string(v), true
		return nil
	})
	return out, found, err
}

func (s *BoltStore) PutString(namespace, key, value string) error {
	if strings.TrimSpace(namespace) == "" || key == "" {
		return errors.New("prefs: namespace and key are required")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(namespace))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) Remove(namespace, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(namespace))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
