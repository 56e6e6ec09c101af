package identity

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	bucketName = "identity"
	slotKey    = "idData"
)

// ErrEmpty is returned by Store.Get when the slot was never written or has been cleared
var ErrEmpty = errors.New("record store is empty")

// Store defines the single-slot record store.
// It holds raw text so writers and readers stay independent of each other's representation.
type Store interface {
	// Put overwrites the slot unconditionally
	Put(text string) error

	// Get returns the slot's text or ErrEmpty
	Get() (string, error)

	// Clear removes the slot's content
	Clear() error
}

// BoltStore implements the Store interface using BoltDB
type BoltStore struct {
	db *bbolt.DB
}

// OpenDB opens (or creates) the bolt database file shared by the stores
func OpenDB(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}
	return db, nil
}

// NewBoltStore creates the record bucket in db if needed.
// The caller owns db and closes it.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Put overwrites the slot
func (b *BoltStore) Put(text string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(slotKey), []byte(text))
	})
}

// Get returns the slot's current text
func (b *BoltStore) Get() (string, error) {
	var text string
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(slotKey))
		if data == nil {
			return ErrEmpty
		}
		// bbolt memory is only valid inside the transaction
		text = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Clear removes the slot; clearing an empty slot is not an error
func (b *BoltStore) Clear() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(slotKey))
	})
}
