// Package statestore provides the hierarchical key-value state tree the
// projector writes into.
//
// Nodes form a dotted-path namespace (channels, devices, states); leaf states
// hold typed scalar values with an acknowledged flag. Two backends exist: an
// in-memory map store and a BadgerDB-backed persistent store. Both publish
// every committed value write to an in-process watermill bus so that
// subscribers (the presence aggregator) observe changes without polling.
package statestore

import (
	"context"
	"math"
	"reflect"

	"github.com/basti85goe/geobridge/internal/domain/statepath"
)

// Node describes one object in the namespace.
type Node struct {
	Path string
	Kind statepath.Kind
	Name string // display name
}

// Value is a stored state value plus its acknowledgement flag. Unacknowledged
// values represent a desired default rather than a confirmed reading.
type Value struct {
	Val any  `json:"val"`
	Ack bool `json:"ack"`
}

// Change describes one committed value write, delivered to subscribers.
type Change struct {
	Path string `json:"path"`
	Val  any    `json:"val"`
	Ack  bool   `json:"ack"`
}

// Handler consumes change notifications for one subscription.
type Handler func(ctx context.Context, ch Change)

// Store is the delegated hierarchical state store consumed by the projector
// and the presence aggregator.
type Store interface {
	// GetNode returns the node at path or ErrNotFound.
	GetNode(ctx context.Context, path string) (Node, error)

	// CreateNodeIfAbsent creates the node when missing. Returns true when
	// this call created it; creating an existing node is a no-op.
	CreateNodeIfAbsent(ctx context.Context, path string, kind statepath.Kind, name string) (bool, error)

	// ExtendNode updates the display name of an existing node.
	ExtendNode(ctx context.Context, path string, name string) error

	// GetValue returns the stored value at path, or nil when absent.
	GetValue(ctx context.Context, path string) (any, error)

	// SetValue stores a value and publishes a Change to subscribers.
	SetValue(ctx context.Context, path string, val any, ack bool) error

	// Subscribe delivers every future Change whose path matches pattern to
	// handler. Delivery is per-path FIFO, cross-path concurrent.
	Subscribe(ctx context.Context, pattern string, handler Handler) error

	// Enumerate returns path -> value for every stored value matching pattern.
	Enumerate(ctx context.Context, pattern string) (map[string]any, error)

	// Close releases backend resources.
	Close() error
}

// ValueEqual reports type-aware equality of two state values. All numeric
// types compare as float64; nil never equals a concrete value; slices compare
// element-wise. This is the comparison behind change suppression.
func ValueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	na, aNum := toFloat(a)
	nb, bNum := toFloat(b)
	if aNum && bNum {
		return na == nb || (math.IsNaN(na) && math.IsNaN(nb))
	}
	if aNum != bNum {
		return false
	}

	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

// toFloat converts any numeric value to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// normalizeValue maps equivalent representations onto one canonical form so
// that values survive a JSON round trip (badger backend) without spuriously
// reading as changed.
func normalizeValue(v any) any {
	switch s := v.(type) {
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = any(e)
		}
		return out
	case []any:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	}
}
