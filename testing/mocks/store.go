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

package mocks

import "github.com/cairn-labs/smt/store"

// Store is a configurable mock of store.Store: each method delegates to a
// settable function field.
type Store struct {
	PutFunc   func(key [32]byte, value []byte) error
	GetFunc   func(key [32]byte) ([]byte, error)
	CloseFunc func() error
}

// BaselineStore returns a Store backed by a plain in-memory map, sufficient
// for tests that exercise tree logic without caring about persistence.
func BaselineStore() *Store {
	data := make(map[[32]byte][]byte)
	s := Store{
		PutFunc: func(key [32]byte, value []byte) error {
			cp := make([]byte, len(value))
			copy(cp, value)
			data[key] = cp
			return nil
		},
		GetFunc: func(key [32]byte) ([]byte, error) {
			value, ok := data[key]
			if !ok {
				return nil, store.ErrNotFound
			}
			return value, nil
		},
		CloseFunc: func() error {
			return nil
		},
	}
	return &s
}

func (s *Store) Put(key [32]byte, value []byte) error {
	return s.PutFunc(key, value)
}

func (s *Store) Get(key [32]byte) ([]byte, error) {
	return s.GetFunc(key)
}

func (s *Store) Close() error {
	return s.CloseFunc()
}
