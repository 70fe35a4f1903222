// Package store persists instance records in a pebble database.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	xchg "github.com/0x5487/pricexchg"
)

const bookPrefix = "book/"

// Store keeps one record per live instance under book/<address>.
type Store struct {
	db *pebble.DB
}

// Open opens or creates the database in dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBook writes rec, replacing the previous record of the instance.
func (s *Store) SaveBook(rec *xchg.BookRecord) error {
	if rec == nil || rec.Book == nil {
		return fmt.Errorf("%w: empty record", xchg.ErrInvalidParam)
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Set(keyFor(rec.Book.Address), val, pebble.Sync)
}

// DeleteBook removes the record of addr.
func (s *Store) DeleteBook(addr xchg.Address) error {
	return s.db.Delete(keyFor(addr), pebble.Sync)
}

// GetBook returns the record of addr, or xchg.ErrNotFound.
func (s *Store) GetBook(addr xchg.Address) (*xchg.BookRecord, error) {
	val, closer, err := s.db.Get(keyFor(addr))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, xchg.ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

// LoadBooks returns every stored record ordered by address.
func (s *Store) LoadBooks() ([]*xchg.BookRecord, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(bookPrefix),
		UpperBound: []byte("book0"), // '0' follows '/'
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []*xchg.BookRecord
	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		records = append(records, rec)
	}
	return records, iter.Error()
}

func decodeRecord(b []byte) (*xchg.BookRecord, error) {
	rec := &xchg.BookRecord{}
	if err := json.Unmarshal(b, rec); err != nil {
		return nil, err
	}
	if rec.Book == nil {
		return nil, errors.New("record without book")
	}
	return rec, nil
}

func keyFor(addr xchg.Address) []byte {
	return []byte(bookPrefix + string(addr))
}
