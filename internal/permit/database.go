package permit

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"
)

const (
	driverBucketName = "drivers"
	permitBucketName = "permits"
)

// ErrDriverNotFound is returned when no driver is registered under a national ID
var ErrDriverNotFound = errors.New("driver not found")

// DB defines the interface for driver and permit persistence
type DB interface {
	// SaveDriver creates or replaces a driver
	SaveDriver(driver *Driver) error

	// GetDriver retrieves a driver by national ID
	GetDriver(nationalID string) (*Driver, error)

	// ListDrivers returns all drivers ordered by national ID
	ListDrivers() ([]*Driver, error)

	// SavePermit saves a permit
	SavePermit(permit *Permit) error

	// ListPermits returns the permits of one driver ordered by date
	ListPermits(driverID string) ([]*Permit, error)
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates the driver and permit buckets in db if needed.
// The caller owns db and closes it.
func NewBoltDB(db *bbolt.DB) (*BoltDB, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(driverBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(permitBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveDriver saves a driver to the database
func (b *BoltDB) SaveDriver(driver *Driver) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(driverBucketName))
		data, err := json.Marshal(driver)
		if err != nil {
			return fmt.Errorf("marshaling driver: %w", err)
		}
		return bucket.Put([]byte(driver.NationalID), data)
	})
}

// GetDriver retrieves a driver by national ID
func (b *BoltDB) GetDriver(nationalID string) (*Driver, error) {
	var driver *Driver
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(driverBucketName))
		data := bucket.Get([]byte(nationalID))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrDriverNotFound, nationalID)
		}
		return json.Unmarshal(data, &driver)
	})
	if err != nil {
		return nil, err
	}
	return driver, nil
}

// ListDrivers returns all drivers
func (b *BoltDB) ListDrivers() ([]*Driver, error) {
	drivers := make([]*Driver, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(driverBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var driver Driver
			if err := json.Unmarshal(v, &driver); err != nil {
				return fmt.Errorf("unmarshaling driver: %w", err)
			}
			drivers = append(drivers, &driver)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return drivers, nil
}

// SavePermit saves a permit to the database
func (b *BoltDB) SavePermit(permit *Permit) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(permitBucketName))
		data, err := json.Marshal(permit)
		if err != nil {
			return fmt.Errorf("marshaling permit: %w", err)
		}
		return bucket.Put([]byte(permit.ID), data)
	})
}

// ListPermits returns all permits requested by one driver
func (b *BoltDB) ListPermits(driverID string) ([]*Permit, error) {
	permits := make([]*Permit, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(permitBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var permit Permit
			if err := json.Unmarshal(v, &permit); err != nil {
				return fmt.Errorf("unmarshaling permit: %w", err)
			}
			if permit.DriverID == driverID {
				permits = append(permits, &permit)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(permits, func(i, j int) bool {
		if permits[i].Date != permits[j].Date {
			return permits[i].Date < permits[j].Date
		}
		return permits[i].CreatedAt.Before(permits[j].CreatedAt)
	})
	return permits, nil
}
