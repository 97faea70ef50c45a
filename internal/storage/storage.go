// Package storage keeps a history of prediction outcomes.
// It uses BoltDB as the underlying storage engine. Records are keyed by
// timestamp so recent and range queries are simple cursor scans.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"covertype/internal/features"
	"covertype/internal/ml"

	"go.etcd.io/bbolt"
)

const (
	predictionsBucket = "predictions"
	dbFile            = "covertype-history.db"
)

// Record is one stored prediction outcome, successful or not.
type Record struct {
	ID        string                `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	Source    string                `json:"source"`
	Input     features.Input        `json:"input"`
	Label     string                `json:"label,omitempty"`
	Top       []ml.ClassProbability `json:"top,omitempty"`
	Stage     string                `json:"stage,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// NewRecord converts an outcome into a history record.
func NewRecord(source string, in features.Input, out ml.Outcome, ts time.Time) Record {
	r := Record{
		ID:        out.ID,
		Timestamp: ts,
		Source:    source,
		Input:     in,
	}
	if out.Err != nil {
		r.Stage = string(out.Err.Stage)
		r.Error = out.Err.Err.Error()
		return r
	}
	if out.Prediction != nil {
		r.Label = out.Prediction.Label
		r.Top = out.Prediction.Top
	}
	return r
}

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("history store is closed")

// Store provides persistent storage for prediction history.
type Store struct {
	mu sync.RWMutex // guards db against Close
	db *bbolt.DB
}

// New opens (or creates) the history database under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Append stores a record. Records without an ID or timestamp are rejected.
func (s *Store) Append(r Record) error {
	if r.ID == "" {
		return errors.New("record has no id")
	}
	if r.Timestamp.IsZero() {
		return errors.New("record has no timestamp")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))

		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		return b.Put(recordKey(r.Timestamp, r.ID), data)
	})
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	records := make([]Record, 0, min(limit, 64))

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				continue // Skip malformed records
			}
			records = append(records, r)
		}
		return nil
	})

	return records, err
}

// Range returns records with start <= timestamp <= end, oldest first.
func (s *Store) Range(start, end time.Time) ([]Record, error) {
	var records []Record

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		endKey := timeKey(end.Add(time.Nanosecond))

		for k, v := c.Seek(timeKey(start)); k != nil && bytes.Compare(k, endKey) < 0; k, v = c.Next() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				continue
			}
			records = append(records, r)
		}
		return nil
	})

	return records, err
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}

	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(predictionsBucket)).Stats().KeyN
		return nil
	})
	return n, err
}

func timeKey(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

func recordKey(t time.Time, id string) []byte {
	return append(timeKey(t), id...)
}
