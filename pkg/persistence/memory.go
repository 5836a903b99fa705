package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// SnapshotVersion is the current version of the snapshot file format.
const SnapshotVersion = 1

// Snapshot is the on-disk form of a MemoryStore.
type Snapshot struct {
	// Version is the snapshot file format version.
	Version int `json:"version"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	Objects map[string]Object `json:"objects,omitempty"`
	States  map[string]State  `json:"states,omitempty"`
}

// MemoryStore is an in-process StateStore. When created with a path it can
// snapshot itself to a JSON file and restore from it.
type MemoryStore struct {
	mu      sync.RWMutex
	path    string
	objects map[string]Object
	states  map[string]State

	lmu       sync.Mutex
	listeners map[uint64]func(StateChange)
	nextID    uint64

	now func() time.Time
}

// NewMemoryStore creates an empty store. path may be empty, in which case
// Save and Load do nothing.
func NewMemoryStore(path string) *MemoryStore {
	return &MemoryStore{
		path:      path,
		objects:   make(map[string]Object),
		states:    make(map[string]State),
		listeners: make(map[uint64]func(StateChange)),
		now:       time.Now,
	}
}

var _ StateStore = (*MemoryStore)(nil)

// SetObject implements StateStore.
func (s *MemoryStore) SetObject(_ context.Context, id string, obj Object) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	s.mu.Lock()
	s.objects[id] = cloneObject(obj)
	s.mu.Unlock()
	return nil
}

// GetObject implements StateStore.
func (s *MemoryStore) GetObject(_ context.Context, id string) (Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[id]
	if !ok {
		return Object{}, fmt.Errorf("%w: object %s", ErrNotFound, id)
	}
	return cloneObject(obj), nil
}

// SetState implements StateStore. Listeners run synchronously on the
// calling goroutine after the write is visible.
func (s *MemoryStore) SetState(_ context.Context, id string, value string, ack bool) error {
	if !validID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	st := State{Value: value, Ack: ack, Timestamp: s.now()}

	s.mu.Lock()
	s.states[id] = st
	s.mu.Unlock()

	s.notify(StateChange{ID: id, State: st})
	return nil
}

// GetState implements StateStore.
func (s *MemoryStore) GetState(_ context.Context, id string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return State{}, fmt.Errorf("%w: state %s", ErrNotFound, id)
	}
	return st, nil
}

// GetStatesOf implements StateStore.
func (s *MemoryStore) GetStatesOf(_ context.Context, prefix string) (map[string]State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State)
	for id, st := range s.states {
		if strings.HasPrefix(id, prefix) {
			out[id] = st
		}
	}
	return out, nil
}

// DeleteTree implements StateStore.
func (s *MemoryStore) DeleteTree(_ context.Context, prefix string) error {
	if !validID(prefix) {
		return fmt.Errorf("%w: %q", ErrInvalidID, prefix)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.objects {
		if inTree(id, prefix) {
			delete(s.objects, id)
		}
	}
	for id := range s.states {
		if inTree(id, prefix) {
			delete(s.states, id)
		}
	}
	return nil
}

// OnStateChange implements StateStore.
func (s *MemoryStore) OnStateChange(fn func(StateChange)) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *MemoryStore) notify(ch StateChange) {
	s.lmu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(StateChange), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

// ObjectIDs returns all object ids below prefix, sorted.
func (s *MemoryStore) ObjectIDs(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id := range s.objects {
		if inTree(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Save writes a snapshot of the store to its file.
func (s *MemoryStore) Save() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	snap := Snapshot{
		Version: SnapshotVersion,
		SavedAt: s.now(),
		Objects: make(map[string]Object, len(s.objects)),
		States:  make(map[string]State, len(s.states)),
	}
	for id, obj := range s.objects {
		snap.Objects[id] = obj
	}
	for id, st := range s.states {
		snap.States[id] = st
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Load replaces the store contents with the snapshot file.
// A missing file leaves the store untouched and is not an error.
func (s *MemoryStore) Load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("persistence: decode %s: %w", s.path, err)
	}
	if snap.Version > SnapshotVersion {
		return fmt.Errorf("persistence: snapshot version %d not supported", snap.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = make(map[string]Object, len(snap.Objects))
	for id, obj := range snap.Objects {
		s.objects[id] = obj
	}
	s.states = make(map[string]State, len(snap.States))
	for id, st := range snap.States {
		s.states[id] = st
	}
	return nil
}

// Clear removes the snapshot file.
func (s *MemoryStore) Clear() error {
	if s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func cloneObject(obj Object) Object {
	if obj.Native != nil {
		native := make(map[string]string, len(obj.Native))
		for k, v := range obj.Native {
			native[k] = v
		}
		obj.Native = native
	}
	return obj
}
