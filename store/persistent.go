// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
)

// NOTE: tree nodes are content-addressed and never overwritten once written,
// so a single insertion can stage every node it touches without any of them
// needing to be readable until the insertion is done. Persistent batches
// writes per Flush rather than on a timer: the tree engine calls Flush once
// per Add, so a whole insertion reaches disk as one badger transaction and
// every node it wrote is visible to the next Get before the next insertion
// begins.

// Persistent is a Store backed by badger. Writes are staged into a
// write batch and committed in one transaction per Flush; reads are
// accelerated by a write-through LRU cache of recently touched nodes.
type Persistent struct {
	log zerolog.Logger

	db    *badger.DB
	mutex sync.Mutex
	batch *badger.WriteBatch

	cache *lru.Cache
}

// NewPersistent creates a badger-backed store, storing nodes on disk at the
// configured path and caching the most recently touched ones in memory.
func NewPersistent(log zerolog.Logger, opts ...Option) (*Persistent, error) {
	logger := log.With().Str("component", "persistent_store").Logger()

	config := DefaultConfig
	for _, opt := range opts {
		opt(&config)
	}

	badgerOpts := badger.DefaultOptions(config.StoragePath)
	badgerOpts.Logger = nil
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("could not open node storage: %w", err)
	}

	cache, err := lru.New(config.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("could not create cache: %w", err)
	}

	return &Persistent{
		log:   logger,
		db:    db,
		batch: db.NewWriteBatch(),
		cache: cache,
	}, nil
}

// Put stages a node payload under the given key for the next Flush, and
// makes it immediately visible to Get through the read cache.
func (s *Persistent) Put(key [32]byte, value []byte) error {
	s.mutex.Lock()
	err := s.batch.Set(key[:], value)
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("could not stage node %x: %w", key[:], err)
	}

	s.cache.Add(key, value)
	return nil
}

// Get retrieves a node payload from the read cache or, failing that, from
// persistent storage.
func (s *Persistent) Get(key [32]byte) ([]byte, error) {
	if val, ok := s.cache.Get(key); ok {
		return val.([]byte), nil
	}

	var value []byte
	err := s.db.View(func(tx *badger.Txn) error {
		it, err := tx.Get(key[:])
		if err != nil {
			return err
		}
		value, err = it.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read node %x: %w", key[:], err)
	}

	s.cache.Add(key, value)
	return value, nil
}

// Flush commits every node staged since the last Flush in a single badger
// transaction, then opens a fresh batch for the next one.
func (s *Persistent) Flush() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.batch.Flush(); err != nil {
		return fmt.Errorf("could not commit batch: %w", err)
	}
	s.batch = s.db.NewWriteBatch()
	return nil
}

// Close flushes any staged writes and releases the underlying database.
func (s *Persistent) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.db.Close()
}
