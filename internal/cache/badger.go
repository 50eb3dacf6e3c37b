/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/timshannon/badgerhold/v4"
	"go.uber.org/zap"
)

// KeyValue is the local cache used for provider offerings
type KeyValue interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

type entry struct {
	Key      string
	Value    []byte
	StoredAt time.Time
}

// BadgerCache is a KeyValue on badgerhold. It is safe for concurrent use.
type BadgerCache struct {
	store *badgerhold.Store
}

var _ KeyValue = (*BadgerCache)(nil)

// NewBadgerCache opens the cache in dir, or in memory when dir is empty
func NewBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.Compression = options.ZSTD
	}
	opts.Logger = badgerLogger{zap.L().Sugar().Named("badger")}

	store, err := badgerhold.Open(badgerhold.Options{
		Encoder: badgerhold.DefaultEncode,
		Decoder: badgerhold.DefaultDecode,
		Options: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open cache: %w", err)
	}

	zap.L().Info("Offering cache opened", zap.String("dir", dir), zap.Bool("in_memory", dir == ""))
	return &BadgerCache{store: store}, nil
}

func (c *BadgerCache) Get(key string) ([]byte, bool, error) {
	var e entry
	if err := c.store.Get(key, &e); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("unable to read cache key %s: %w", key, err)
	}
	return e.Value, true, nil
}

func (c *BadgerCache) Set(key string, value []byte) error {
	if err := c.store.Upsert(key, entry{Key: key, Value: value, StoredAt: time.Now()}); err != nil {
		return fmt.Errorf("unable to write cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (c *BadgerCache) Delete(key string) error {
	if err := c.store.Delete(key, entry{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("unable to delete cache key %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys starting with prefix; an empty prefix lists all keys
func (c *BadgerCache) Keys(prefix string) ([]string, error) {
	var entries []entry
	var query *badgerhold.Query
	if prefix != "" {
		query = badgerhold.Where("Key").HasPrefix(prefix)
	}
	if err := c.store.Find(&entries, query); err != nil {
		return nil, fmt.Errorf("unable to list cache keys: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

func (c *BadgerCache) Close() error {
	return c.store.Close()
}

// badgerLogger routes badger's log output through zap
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }
