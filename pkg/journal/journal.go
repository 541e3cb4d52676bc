package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/f5yacobucci/marathon-bigip-ctlr/pkg/reconciler"
)

var bucketPasses = []byte("passes")

// Pass outcomes recorded in the journal.
const (
	ResultApplied = "applied"
	ResultRetried = "retried"
	ResultFailed  = "failed"
)

// Record is one reconciliation pass as it happened: where the desired
// state came from, how long the pass took, what it changed, and how it
// ended.
type Record struct {
	ID       string           `json:"id"`
	Time     time.Time        `json:"time"`
	Source   string           `json:"source"`
	Duration time.Duration    `json:"duration"`
	Result   string           `json:"result"`
	Stats    reconciler.Stats `json:"stats"`
	Error    string           `json:"error,omitempty"`
}

// Store persists pass records in a local BoltDB file so operators can
// audit what the controller changed and when.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the journal database at path. The lock timeout
// keeps a second process from blocking forever on a journal the
// controller holds open.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPasses); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketPasses, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Append writes one pass record. A zero ID or timestamp is filled in.
// Keys sort chronologically so cursor order is pass order.
func (s *Store) Append(record *Record) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Time.IsZero() {
		record.Time = time.Now().UTC()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPasses)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%020d-%s", record.Time.UnixNano(), record.ID)
		return b.Put([]byte(key), data)
	})
}

// List returns up to limit records, newest first. A limit of zero or
// less returns everything.
func (s *Store) List(limit int) ([]*Record, error) {
	var records []*Record
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPasses)
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) == limit {
				return nil
			}
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
		}
		return nil
	})
	return records, err
}

// Prune drops the oldest records beyond keep. With keep at zero or less
// nothing is pruned.
func (s *Store) Prune(keep int) error {
	if keep <= 0 {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPasses)
		excess := b.Stats().KeyN - keep
		if excess <= 0 {
			return nil
		}
		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && len(stale) < excess; k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, key := range stale {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
