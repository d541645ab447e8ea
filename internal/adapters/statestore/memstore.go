package statestore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/basti85goe/geobridge/internal/domain/statepath"
	"github.com/basti85goe/geobridge/pkg/metrics"
)

// MemStore is the in-memory Store. It is the default backend and doubles as
// the test store: WriteCount exposes how many value writes actually landed.
type MemStore struct {
	mu     sync.RWMutex
	nodes  map[string]Node
	values map[string]Value
	closed bool

	notifier *Notifier
	writes   atomic.Int64
}

// NewMemStore creates an empty in-memory store publishing to notifier.
func NewMemStore(notifier *Notifier) *MemStore {
	return &MemStore{
		nodes:    make(map[string]Node),
		values:   make(map[string]Value),
		notifier: notifier,
	}
}

// GetNode returns the node at path or ErrNotFound.
func (s *MemStore) GetNode(ctx context.Context, path string) (Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Node{}, ErrClosed
	}
	n, ok := s.nodes[path]
	if !ok {
		return Node{}, ErrNotFound
	}
	return n, nil
}

// CreateNodeIfAbsent creates the node when missing; no-op otherwise.
func (s *MemStore) CreateNodeIfAbsent(ctx context.Context, path string, kind statepath.Kind, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	if _, ok := s.nodes[path]; ok {
		return false, nil
	}
	s.nodes[path] = Node{Path: path, Kind: kind, Name: name}
	metrics.RecordNodeCreated()
	return true, nil
}

// ExtendNode updates the display name of an existing node.
func (s *MemStore) ExtendNode(ctx context.Context, path string, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	n, ok := s.nodes[path]
	if !ok {
		return ErrNotFound
	}
	n.Name = name
	s.nodes[path] = n
	return nil
}

// GetValue returns the stored value at path, or nil when absent.
func (s *MemStore) GetValue(ctx context.Context, path string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	v, ok := s.values[path]
	if !ok {
		return nil, nil
	}
	return v.Val, nil
}

// SetValue stores a value and publishes the change.
func (s *MemStore) SetValue(ctx context.Context, path string, val any, ack bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.values[path] = Value{Val: val, Ack: ack}
	s.mu.Unlock()

	s.writes.Add(1)
	if s.notifier != nil {
		return s.notifier.Publish(ctx, Change{Path: path, Val: val, Ack: ack})
	}
	return nil
}

// Subscribe registers a pattern-filtered change handler.
func (s *MemStore) Subscribe(ctx context.Context, pattern string, handler Handler) error {
	if s.notifier == nil {
		return ErrClosed
	}
	return s.notifier.Subscribe(ctx, pattern, handler)
}

// Enumerate returns path -> value for every stored value matching pattern.
func (s *MemStore) Enumerate(ctx context.Context, pattern string) (map[string]any, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string]any)
	for path, v := range s.values {
		if MatchPattern(pattern, path) {
			out[path] = v.Val
		}
	}
	return out, nil
}

// Close marks the store closed. The notifier is owned by the caller and is
// not closed here.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// WriteCount returns how many value writes have landed. Test instrumentation
// for change-suppression assertions.
func (s *MemStore) WriteCount() int64 {
	return s.writes.Load()
}
