// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

package describe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/eventbnb/internal/logging"
	"github.com/tomtom215/eventbnb/internal/metrics"
)

// DefaultCacheTTL is how long a generated description is reused.
const DefaultCacheTTL = 7 * 24 * time.Hour

const cacheKeyPrefix = "describe:"

// OpenCache opens a BadgerDB cache at path. An empty path opens an
// in-memory database.
func OpenCache(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		opts = badger.DefaultOptions(path)
		opts.ValueLogFileSize = 16 << 20
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open description cache: %w", err)
	}
	return db, nil
}

// CachedWriter memoizes a Writer by model and prompt. Generation failures
// are never cached.
type CachedWriter struct {
	next  Writer
	db    *badger.DB
	model string
	ttl   time.Duration
}

// NewCachedWriter wraps next. model is folded into the cache key so
// switching models does not serve stale text. A non-positive ttl uses
// DefaultCacheTTL.
func NewCachedWriter(next Writer, db *badger.DB, model string, ttl time.Duration) *CachedWriter {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedWriter{next: next, db: db, model: model, ttl: ttl}
}

// Revise implements Writer.
func (w *CachedWriter) Revise(ctx context.Context, req Request) (string, error) {
	key := CacheKey(w.model, BuildPrompt(req))

	if text, ok := w.get(key); ok {
		metrics.DescribeCache.WithLabelValues("hit").Inc()
		return text, nil
	}
	metrics.DescribeCache.WithLabelValues("miss").Inc()

	text, err := w.next.Revise(ctx, req)
	if err != nil {
		return "", err
	}

	if err := w.put(key, text); err != nil {
		logging.Warn().Err(err).Str("listing_id", req.Pair.ListingID).Msg("Failed to cache description")
	}
	return text, nil
}

func (w *CachedWriter) get(key []byte) (string, bool) {
	var text string
	err := w.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			text = string(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Msg("Description cache read failed")
		}
		return "", false
	}
	return text, true
}

func (w *CachedWriter) put(key []byte, text string) error {
	return w.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, []byte(text)).WithTTL(w.ttl))
	})
}

// CacheKey derives the cache key for a model and prompt.
func CacheKey(model, prompt string) []byte {
	sum := sha256.Sum256([]byte(model + "\x00" + prompt))
	return []byte(cacheKeyPrefix + hex.EncodeToString(sum[:]))
}
