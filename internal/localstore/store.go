// Package localstore is the on-device data store for the sync client.
// It keeps whole-collection JSON snapshots in Badger; the sync engine only
// ever reads or replaces a collection as a unit.
package localstore

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"readlog/internal/reading"
)

const (
	keyEntries    = "readlog/entries"
	keyCurriculum = "readlog/curriculum"
)

// Store wraps a Badger database holding one user's local data.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens (or creates) the local database at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is noise for a CLI
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local db: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "localstore").Logger()}, nil
}

// OpenInMemory opens an in-memory store, used by tests.
func OpenInMemory(log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory db: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReadAllEntries returns every locally stored entry. A missing or
// unparseable blob yields an empty slice, not an error, so the app stays
// usable over a corrupt store.
func (s *Store) ReadAllEntries() ([]reading.Entry, error) {
	raw, err := s.read(keyEntries)
	if err != nil || raw == nil {
		return nil, err
	}
	var entries []reading.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.log.Warn().Err(err).Str("key", keyEntries).Msg("discarding unparseable local blob")
		return nil, nil
	}
	return entries, nil
}

// WriteAllEntries replaces the entry collection in one transaction.
func (s *Store) WriteAllEntries(entries []reading.Entry) error {
	return s.write(keyEntries, entries)
}

// ReadCurriculum returns the locally stored topic set, empty on a missing
// or unparseable blob.
func (s *Store) ReadCurriculum() (reading.Curriculum, error) {
	raw, err := s.read(keyCurriculum)
	if err != nil || raw == nil {
		return reading.Curriculum{}, err
	}
	var cur reading.Curriculum
	if err := json.Unmarshal(raw, &cur); err != nil {
		s.log.Warn().Err(err).Str("key", keyCurriculum).Msg("discarding unparseable local blob")
		return reading.Curriculum{}, nil
	}
	return cur, nil
}

// WriteCurriculum replaces the topic collection in one transaction.
func (s *Store) WriteCurriculum(cur reading.Curriculum) error {
	return s.write(keyCurriculum, cur)
}

func (s *Store) read(key string) ([]byte, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}

func (s *Store) write(key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), buf)
	}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
