package persistence

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when an object or state does not exist.
var ErrNotFound = errors.New("persistence: not found")

// ErrInvalidID is returned for empty or malformed identifiers.
var ErrInvalidID = errors.New("persistence: invalid id")

// ObjectType classifies a node in the object tree.
type ObjectType string

const (
	ObjectDevice  ObjectType = "device"
	ObjectChannel ObjectType = "channel"
	ObjectState   ObjectType = "state"
)

// Object describes a node in the object tree. Devices own channels (one per
// service), channels own states (one per state variable or command).
type Object struct {
	Type ObjectType `json:"type"`
	Name string     `json:"name"`

	// Role hints how a UI should present a state (e.g. "level.volume").
	Role string `json:"role,omitempty"`

	// ValueType is "string", "number" or "boolean".
	ValueType string `json:"valueType,omitempty"`

	Read  bool `json:"read,omitempty"`
	Write bool `json:"write,omitempty"`

	// Native holds protocol details such as the device location or the
	// service type.
	Native map[string]string `json:"native,omitempty"`
}

// State is the current value of a state object.
type State struct {
	Value     string    `json:"val"`
	Ack       bool      `json:"ack"`
	Timestamp time.Time `json:"ts"`
}

// StateChange is delivered to OnStateChange listeners after every SetState.
type StateChange struct {
	ID    string `json:"id"`
	State State  `json:"state"`

	// Origin identifies the store instance that performed the write.
	Origin string `json:"origin,omitempty"`
}

// StateStore is the object/state store consumed by the eventing and
// controller layers.
type StateStore interface {
	// SetObject creates or replaces the object with the given id.
	SetObject(ctx context.Context, id string, obj Object) error

	// GetObject returns ErrNotFound when the object does not exist.
	GetObject(ctx context.Context, id string) (Object, error)

	// SetState writes a value. ack=true marks values confirmed by the device.
	SetState(ctx context.Context, id string, value string, ack bool) error

	// GetState returns ErrNotFound when the state has never been written.
	GetState(ctx context.Context, id string) (State, error)

	// GetStatesOf returns every state whose id starts with prefix.
	GetStatesOf(ctx context.Context, prefix string) (map[string]State, error)

	// DeleteTree removes all objects and states below prefix.
	DeleteTree(ctx context.Context, prefix string) error

	// OnStateChange registers fn for every state write. The returned
	// function removes the registration.
	OnStateChange(fn func(StateChange)) (cancel func())
}

// Separator joins id segments.
const Separator = "."

// JoinID builds a hierarchical id, replacing separators inside segments.
func JoinID(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		clean = append(clean, sanitize(p))
	}
	return strings.Join(clean, Separator)
}

// sanitize keeps ids unambiguous: UDNs contain ':' and sometimes '.'.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '?', '[', ']':
			return '_'
		}
		return r
	}, s)
}

// Parent returns the id one level up, or "" at the root.
func Parent(id string) string {
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return ""
	}
	return id[:i]
}

// Leaf returns the last segment of id.
func Leaf(id string) string {
	return id[strings.LastIndex(id, Separator)+1:]
}

func validID(id string) bool {
	if id == "" || strings.HasPrefix(id, Separator) || strings.HasSuffix(id, Separator) {
		return false
	}
	return !strings.Contains(id, Separator+Separator)
}

// inTree reports whether id equals prefix or lies below it.
func inTree(id, prefix string) bool {
	if prefix == "" {
		return true
	}
	return id == prefix || strings.HasPrefix(id, prefix+Separator)
}
