package statestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/basti85goe/geobridge/internal/domain/statepath"
	"github.com/basti85goe/geobridge/pkg/metrics"
)

// Key prefixes separating node records from state values.
const (
	nodeKeyPrefix  = "n:"
	valueKeyPrefix = "v:"
)

// nodeRecord is the serialized form of a Node (path lives in the key).
type nodeRecord struct {
	Kind statepath.Kind `json:"kind"`
	Name string         `json:"name"`
}

// BadgerStore is the persistent Store on BadgerDB. Values survive restarts;
// change notifications still ride the in-process notifier and are therefore
// not replayed after a restart.
type BadgerStore struct {
	db       *badger.DB
	notifier *Notifier
}

// OpenBadger opens (or creates) a badger-backed store.
func OpenBadger(notifier *Notifier, opts ...Option) (*BadgerStore, error) {
	cfg := newOptions(opts...)

	bopts := badger.DefaultOptions(cfg.dir).WithLogger(nil)
	if cfg.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.dir, err)
	}

	return &BadgerStore{db: db, notifier: notifier}, nil
}

// GetNode returns the node at path or ErrNotFound.
func (s *BadgerStore) GetNode(ctx context.Context, path string) (Node, error) {
	var rec nodeRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(nodeKeyPrefix + path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get node: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return Node{}, err
	}
	return Node{Path: path, Kind: rec.Kind, Name: rec.Name}, nil
}

// CreateNodeIfAbsent creates the node when missing; no-op otherwise. The
// check and the write share one transaction, so concurrent creators conflict
// at the badger level instead of both reporting created.
func (s *BadgerStore) CreateNodeIfAbsent(ctx context.Context, path string, kind statepath.Kind, name string) (bool, error) {
	created := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(nodeKeyPrefix + path)
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("probe node: %w", err)
		}

		data, err := json.Marshal(nodeRecord{Kind: kind, Name: name})
		if err != nil {
			return fmt.Errorf("marshal node: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set node: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if created {
		metrics.RecordNodeCreated()
	}
	return created, nil
}

// ExtendNode updates the display name of an existing node.
func (s *BadgerStore) ExtendNode(ctx context.Context, path string, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(nodeKeyPrefix + path)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get node: %w", err)
		}

		var rec nodeRecord
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		}); err != nil {
			return err
		}

		rec.Name = name
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal node: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetValue returns the stored value at path, or nil when absent.
func (s *BadgerStore) GetValue(ctx context.Context, path string) (any, error) {
	var rec Value
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(valueKeyPrefix + path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get value: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return rec.Val, nil
}

// SetValue stores a value and publishes the change.
func (s *BadgerStore) SetValue(ctx context.Context, path string, val any, ack bool) error {
	data, err := json.Marshal(Value{Val: val, Ack: ack})
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(valueKeyPrefix+path), data)
	})
	if err != nil {
		return fmt.Errorf("set value: %w", err)
	}

	if s.notifier != nil {
		return s.notifier.Publish(ctx, Change{Path: path, Val: val, Ack: ack})
	}
	return nil
}

// Subscribe registers a pattern-filtered change handler.
func (s *BadgerStore) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	if s.notifier == nil {
		return ErrClosed
	}
	return s.notifier.Subscribe(ctx, pattern, handler)
}

// Enumerate returns path -> value for every stored value matching pattern.
func (s *BadgerStore) Enumerate(ctx context.Context, pattern string) (map[string]any, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	out := make(map[string]any)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(valueKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			path := strings.TrimPrefix(string(item.Key()), valueKeyPrefix)
			if !MatchPattern(pattern, path) {
				continue
			}
			var rec Value
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out[path] = rec.Val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
