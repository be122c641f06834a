package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/liftdiag/internal/logging"
)

// ErrNotFound is returned by Get when the key is absent or expired
var ErrNotFound = badger.ErrKeyNotFound

// expiryHeaderLen is the size of the expiry timestamp stored ahead of every value
const expiryHeaderLen = 8

type BadgerCache struct {
	db      *badger.DB
	metrics *Metrics
	config  *BadgerConfig
	stopGC  chan struct{}
}

type BadgerConfig struct {
	Path             string
	InMemory         bool
	MaxMemoryMB      int
	ValueLogMaxMB    int
	CompactL0OnClose bool
	NumGoroutines    int
	GCInterval       time.Duration
	GCDiscardRatio   float64
}

func NewBadgerCache(config *BadgerConfig) (*BadgerCache, error) {
	if config.GCInterval == 0 {
		config.GCInterval = 10 * time.Minute
	}
	if config.GCDiscardRatio == 0 {
		config.GCDiscardRatio = 0.5
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
		if config.ValueLogMaxMB > 0 {
			opts = opts.WithValueLogFileSize(int64(config.ValueLogMaxMB) << 20)
		}
		opts = opts.WithCompactL0OnClose(config.CompactL0OnClose)
	}

	if config.MaxMemoryMB > 0 {
		opts = opts.WithMemTableSize(int64(config.MaxMemoryMB) << 20)
	}
	if config.NumGoroutines > 0 {
		opts = opts.WithNumGoroutines(config.NumGoroutines)
	}

	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithNumLevelZeroTables(5)
	opts = opts.WithNumLevelZeroTablesStall(10)
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	cache := &BadgerCache{
		db:      db,
		metrics: &Metrics{},
		config:  config,
		stopGC:  make(chan struct{}),
	}

	// Value log GC has nothing to reclaim in memory mode.
	if !config.InMemory {
		go cache.runGC()
	}

	cache.updateSizeMetrics()

	return cache, nil
}

func encodeEntry(value []byte, ttl time.Duration) []byte {
	full := make([]byte, expiryHeaderLen+len(value))
	binary.LittleEndian.PutUint64(full[:expiryHeaderLen], uint64(time.Now().Add(ttl).Unix()))
	copy(full[expiryHeaderLen:], value)
	return full
}

func decodeEntry(full []byte) []byte {
	if len(full) >= expiryHeaderLen {
		return full[expiryHeaderLen:]
	}
	return full
}

func (bc *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := bc.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if item.IsDeletedOrExpired() {
			return badger.ErrKeyNotFound
		}

		full, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = decodeEntry(full)
		return nil
	})

	return value, err
}

func (bc *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := bc.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), encodeEntry(value, ttl))
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Sets, 1)
	}

	return err
}

func (bc *BadgerCache) Delete(ctx context.Context, key string) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, 1)
	}

	return err
}

func (bc *BadgerCache) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	results := make(map[string][]byte)

	err := bc.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			if item.IsDeletedOrExpired() {
				continue
			}

			full, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			results[key] = decodeEntry(full)
		}
		return nil
	})

	return results, err
}

func (bc *BadgerCache) SetMulti(ctx context.Context, items map[string]CacheItem) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		for key, item := range items {
			entry := badger.NewEntry([]byte(key), encodeEntry(item.Value, item.TTL))
			if item.TTL > 0 {
				entry = entry.WithTTL(item.TTL)
			}
			if err := txn.SetEntry(entry); err != nil {
				return err
			}
		}
		return nil
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Sets, uint64(len(items)))
	}

	return err
}

func (bc *BadgerCache) DeleteMulti(ctx context.Context, keys []string) error {
	err := bc.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, uint64(len(keys)))
	}

	return err
}

// DeleteByPattern removes every key matching pattern. Only trailing
// wildcards are supported ("prefix:*").
func (bc *BadgerCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")

	var keysToDelete [][]byte
	err := bc.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = bc.db.Update(func(txn *badger.Txn) error {
		for _, key := range keysToDelete {
			if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})

	if err == nil {
		atomic.AddUint64(&bc.metrics.Deletes, uint64(len(keysToDelete)))
		logging.Debug("cache entries invalidated", logging.CacheKey(pattern), logging.Count("key", len(keysToDelete)))
	}

	return err
}

func (bc *BadgerCache) GetMetrics() *Metrics {
	bc.updateSizeMetrics()
	return bc.metrics
}

func (bc *BadgerCache) Close() error {
	close(bc.stopGC)
	return bc.db.Close()
}

func (bc *BadgerCache) runGC() {
	ticker := time.NewTicker(bc.config.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			bc.performGC()
		case <-bc.stopGC:
			return
		}
	}
}

func (bc *BadgerCache) performGC() {
	startTime := time.Now()
	cycles := 0

	for {
		err := bc.db.RunValueLogGC(bc.config.GCDiscardRatio)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				if cycles > 0 {
					logging.Debug("badger GC completed",
						logging.Count("cycle", cycles),
						logging.Duration("gc", time.Since(startTime)))
				}
				break
			}
			logging.Warn("badger GC error", logging.Count("cycle", cycles), logging.Err(err))
			break
		}
		cycles++
	}
}

func (bc *BadgerCache) updateSizeMetrics() {
	lsm, vlog := bc.db.Size()
	atomic.StoreUint64(&bc.metrics.Size, uint64(lsm+vlog))

	var keyCount uint64
	err := bc.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keyCount++
		}
		return nil
	})

	if err == nil {
		atomic.StoreUint64(&bc.metrics.Keys, keyCount)
	}
}
