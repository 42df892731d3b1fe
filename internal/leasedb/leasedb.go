// Package leasedb keeps an append-only journal of acquired leases in a bbolt
// file. The acquisition path itself is stateless; the journal is an opt-in
// record of what servers handed out over time.
package leasedb

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketLeases = []byte("leases")

// Record is one journal entry.
type Record struct {
	AcquiredAt   time.Time `json:"acquired_at"`
	MAC          string    `json:"mac"`
	IP           string    `json:"ip"`
	Server       string    `json:"server"`
	LeaseSeconds uint32    `json:"lease_seconds"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	Interface    string    `json:"interface,omitempty"`
}

// Journal is an open lease-history database.
type Journal struct {
	db *bolt.DB
}

// Open opens (creating if needed) the journal file at path.
func Open(path string) (*Journal, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening lease journal %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLeases)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing lease journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append writes one record. Keys are nanosecond timestamps so iteration order
// is acquisition order.
func (j *Journal) Append(rec Record) error {
	if rec.AcquiredAt.IsZero() {
		rec.AcquiredAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding lease record: %w", err)
	}
	key := []byte(rec.AcquiredAt.UTC().Format(time.RFC3339Nano))
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketLeases).Put(key, data)
	})
}

// History returns up to limit records, newest first. limit <= 0 returns all.
func (j *Journal) History(limit int) ([]Record, error) {
	var out []Record
	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketLeases).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding lease record %s: %w", k, err)
			}
			out = append(out, rec)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of journaled leases.
func (j *Journal) Count() (int, error) {
	n := 0
	err := j.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketLeases).Stats().KeyN
		return nil
	})
	return n, err
}
