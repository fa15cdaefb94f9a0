// Package badgerstore persists measurement and tolerance records in an
// embedded BadgerDB.
//
// Key layout, with each name path-escaped:
//
//	m/<structure>/<characteristic>/<piece, 19 digits>  -> Measurement JSON
//	t/<structure>/<characteristic>                     -> Tolerance JSON
//
// Piece numbers are zero-padded to the width of the largest int64, so prefix
// iteration returns production order for every valid piece.
package badgerstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/CARsoftAR/medicionProcesos/internal/store"
)

// Config holds configuration for a BadgerDB-backed store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM; used by tests.
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
	// Logger receives BadgerDB's own messages. Nil disables them.
	Logger *slog.Logger
}

// Store implements store.Store on BadgerDB. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

var _ store.Store = (*Store)(nil)

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Open opens or creates the database described by cfg. The caller must
// Close the returned store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutMeasurement(ctx context.Context, key store.Key, m store.Measurement) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(measurementKey(key, m.Piece), val)
	})
}

func (s *Store) Measurements(ctx context.Context, key store.Key) ([]store.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := measurementPrefix(key)
	out := make([]store.Measurement, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m store.Measurement
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return fmt.Errorf("decode measurement %q: %w", it.Item().Key(), err)
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Characteristics(ctx context.Context, structure string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for _, kind := range []string{"m", "t"} {
			prefix := []byte(kind + "/" + url.PathEscape(structure) + "/")
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				rest := bytes.TrimPrefix(it.Item().Key(), prefix)
				seg, _, _ := bytes.Cut(rest, []byte("/"))
				name, err := url.PathUnescape(string(seg))
				if err != nil {
					return fmt.Errorf("decode key %q: %w", it.Item().Key(), err)
				}
				seen[name] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) PutTolerance(ctx context.Context, key store.Key, t store.Tolerance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tolerance: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(toleranceKey(key), val)
	})
}

func (s *Store) Tolerance(ctx context.Context, key store.Key) (store.Tolerance, error) {
	if err := ctx.Err(); err != nil {
		return store.Tolerance{}, err
	}
	var t store.Tolerance
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(toleranceKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.Tolerance{}, store.ErrNotFound
	}
	if err != nil {
		return store.Tolerance{}, fmt.Errorf("read tolerance %s/%s: %w", key.Structure, key.Characteristic, err)
	}
	return t, nil
}

func keyPath(kind string, key store.Key) string {
	return kind + "/" + url.PathEscape(key.Structure) + "/" + url.PathEscape(key.Characteristic)
}

func measurementPrefix(key store.Key) []byte {
	return []byte(keyPath("m", key) + "/")
}

func measurementKey(key store.Key, piece int) []byte {
	return []byte(fmt.Sprintf("%s/%019d", keyPath("m", key), piece))
}

func toleranceKey(key store.Key) []byte {
	return []byte(keyPath("t", key))
}
