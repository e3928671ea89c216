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

	"github.com/dgraph-io/badger/v2"
)

// Memory is a Store that keeps everything in badger's in-memory mode. It is
// meant for tests and short-lived tools: nothing written to it survives
// process exit.
type Memory struct {
	db *badger.DB
}

// NewMemory creates an in-memory store.
func NewMemory() (*Memory, error) {
	opts := badger.DefaultOptions("")
	opts.InMemory = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open in-memory storage: %w", err)
	}

	return &Memory{db: db}, nil
}

// Put stores a node payload under the given key.
func (m *Memory) Put(key [32]byte, value []byte) error {
	err := m.db.Update(func(tx *badger.Txn) error {
		return tx.Set(key[:], value)
	})
	if err != nil {
		return fmt.Errorf("could not apply write: %w", err)
	}
	return nil
}

// Get retrieves a node payload.
func (m *Memory) Get(key [32]byte) ([]byte, error) {
	var value []byte
	err := m.db.View(func(tx *badger.Txn) error {
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
	return value, nil
}

// Close releases the underlying in-memory database.
func (m *Memory) Close() error {
	return m.db.Close()
}
