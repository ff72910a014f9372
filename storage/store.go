// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package storage persists ledger records as rlp-encoded values in a geth
// key/value database. Writes issued between Begin and Commit are collected
// in a single batch and land atomically.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gofrs/flock"
)

const (
	EngineMemory  = "memory"
	EngineLevelDB = "leveldb"

	lockFileName = "govcore.lock"
	dbDirName    = "ledger"
)

var (
	ErrDirLocked       = errors.New("data directory is locked by another process")
	ErrBatchInProgress = errors.New("storage batch already in progress")
	ErrUnknownEngine   = errors.New("unknown storage engine")
)

// Config selects and sizes the database backend.
type Config struct {
	Engine  string // memory or leveldb
	Dir     string // data directory, required for leveldb
	Cache   int    // leveldb cache size in MB
	Handles int    // leveldb open file handles
}

// Store wraps a key/value database. A nil *Store accepts writes and drops
// them, so ledgers can run without persistence.
type Store struct {
	db   ethdb.KeyValueStore
	lock *flock.Flock

	mu    sync.Mutex
	batch ethdb.Batch
}

// New wraps an existing database.
func New(db ethdb.KeyValueStore) *Store {
	return &Store{db: db}
}

// NewMemory returns a store backed by an in-memory database.
func NewMemory() *Store {
	return New(memorydb.New())
}

// Open opens the backend described by cfg. For leveldb the data directory is
// created if needed and locked for the lifetime of the store.
func Open(cfg Config) (*Store, error) {
	switch cfg.Engine {
	case "", EngineMemory:
		return NewMemory(), nil
	case EngineLevelDB:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	fl := flock.New(filepath.Join(cfg.Dir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return nil, ErrDirLocked
	}

	db, err := leveldb.New(filepath.Join(cfg.Dir, dbDirName), cfg.Cache, cfg.Handles, "govcore/db/", false)
	if err != nil {
		fl.Unlock() //nolint:errcheck
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	log.Info("Opened ledger database", "engine", cfg.Engine, "dir", cfg.Dir, "cache", cfg.Cache, "handles", cfg.Handles)

	return &Store{db: db, lock: fl}, nil
}

// Begin starts collecting writes into a batch.
func (s *Store) Begin() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		return ErrBatchInProgress
	}
	s.batch = s.db.NewBatch()
	return nil
}

// Commit writes the pending batch.
func (s *Store) Commit() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch == nil {
		return nil
	}
	batch := s.batch
	s.batch = nil
	if err := batch.Write(); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return nil
}

// Discard drops the pending batch.
func (s *Store) Discard() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		s.batch.Reset()
		s.batch = nil
	}
}

// WriteRLP encodes v and stores it under key.
func (s *Store) WriteRLP(key []byte, v interface{}) error {
	if s == nil {
		return nil
	}
	encoded, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("encode record %x: %w", key, err)
	}
	return s.put(key, encoded)
}

// ReadRLP decodes the value stored under key into v. It reports false if the
// key is absent.
func (s *Store) ReadRLP(key []byte, v interface{}) (bool, error) {
	if s == nil {
		return false, nil
	}
	has, err := s.db.Has(key)
	if err != nil {
		return false, fmt.Errorf("read record %x: %w", key, err)
	}
	if !has {
		return false, nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return false, fmt.Errorf("read record %x: %w", key, err)
	}
	if err := rlp.DecodeBytes(data, v); err != nil {
		return false, fmt.Errorf("decode record %x: %w", key, err)
	}
	return true, nil
}

// Delete removes key.
func (s *Store) Delete(key []byte) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		return s.batch.Delete(key)
	}
	return s.db.Delete(key)
}

// Iterate calls fn for every committed record whose key starts with prefix,
// in key order. The key passed to fn has the prefix stripped.
func (s *Store) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	if s == nil {
		return nil
	}
	it := s.db.NewIterator(prefix, nil)
	defer it.Release()

	for it.Next() {
		key := it.Key()[len(prefix):]
		if err := fn(copyBytes(key), copyBytes(it.Value())); err != nil {
			return err
		}
	}
	return it.Error()
}

// Close releases the database and the directory lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.Discard()
	err := s.db.Close()
	if s.lock != nil {
		if uerr := s.lock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

func (s *Store) put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batch != nil {
		return s.batch.Put(key, value)
	}
	return s.db.Put(key, value)
}

// copyBytes copies b; iterator buffers are reused between calls.
func copyBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}

// Key joins a prefix and key parts into a database key.
func Key(prefix []byte, parts ...[]byte) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p)
	}
	key := make([]byte, 0, n)
	key = append(key, prefix...)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// EncodeUint64 encodes n as 8 big-endian bytes, so numeric keys sort in
// numeric order.
func EncodeUint64(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

// DecodeUint64 is the inverse of EncodeUint64.
func DecodeUint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b[:8])
}
