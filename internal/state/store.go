// Package state implements the shared game-state store: a path-addressable,
// observable tree that both the host and client sides render from.
package state

import (
	"strings"
	"sync"
)

// ChangeFunc receives the new and old value of a subscribed path.
// For ancestor notifications old is nil, since the subtree is
// mutated in place.
type ChangeFunc func(newValue, oldValue any)

// GlobalFunc receives every change in the store, keyed by path.
type GlobalFunc func(path string, newValue, oldValue any)

type subscription struct {
	id int
	fn ChangeFunc
}

// Store is an observable key-value tree addressed by dot-delimited paths.
// Writes notify synchronously: exact-path listeners first, then listeners
// on every ancestor path, then global listeners. There is no batching;
// callers needing multi-field writes use Update, which applies each pair
// sequentially, not atomically.
type Store struct {
	mu       sync.Mutex
	root     map[string]any
	defaults func() map[string]any

	nextID int
	subs   map[string][]subscription
	global map[int]GlobalFunc
}

// New creates a store initialized from the defaults function. The same
// function is reused by Reset, so it must return a fresh tree each call.
func New(defaults func() map[string]any) *Store {
	return &Store{
		root:     defaults(),
		defaults: defaults,
		subs:     make(map[string][]subscription),
		global:   make(map[int]GlobalFunc),
	}
}

// Get reads the value at path, or the whole root for an empty path.
// Absent intermediate keys yield nil, never an error.
func (s *Store) Get(path string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(path)
}

func (s *Store) get(path string) any {
	if path == "" {
		return s.root
	}

	var current any = s.root
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

// Set writes value at path, creating intermediate containers as needed,
// and synchronously notifies exact, ancestor, and global listeners.
func (s *Store) Set(path string, value any) {
	s.mu.Lock()
	old := s.set(path, value)
	notify := s.collectNotifications(path, value, old)
	s.mu.Unlock()

	for _, n := range notify {
		n()
	}
}

// set performs the write and returns the previous value. Caller holds mu.
func (s *Store) set(path string, value any) any {
	if path == "" {
		old := s.root
		if m, ok := value.(map[string]any); ok {
			s.root = m
		}
		return old
	}

	keys := strings.Split(path, ".")
	current := s.root
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}

	last := keys[len(keys)-1]
	old := current[last]
	current[last] = value
	return old
}

// collectNotifications builds the ordered callback list for a completed
// write. Caller holds mu; the returned closures are invoked without it,
// so listeners may safely re-enter the store.
func (s *Store) collectNotifications(path string, value, old any) []func() {
	var notify []func()

	for _, sub := range s.subs[path] {
		fn := sub.fn
		notify = append(notify, func() { fn(value, old) })
	}

	// Ancestors receive their own current full value. A root write has
	// no ancestors; its subscribers already fired in the exact pass.
	if path != "" {
		for ancestor := parentPath(path); ; ancestor = parentPath(ancestor) {
			ancestorValue := s.get(ancestor)
			for _, sub := range s.subs[ancestor] {
				fn := sub.fn
				notify = append(notify, func() { fn(ancestorValue, nil) })
			}
			if ancestor == "" {
				break
			}
		}
	}

	for _, fn := range s.global {
		gfn := fn
		notify = append(notify, func() { gfn(path, value, old) })
	}

	return notify
}

func parentPath(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Merge shallow-merges partial into the map value at path. A non-map
// current value is replaced wholesale.
func (s *Store) Merge(path string, partial map[string]any) {
	s.mu.Lock()
	current, ok := s.get(path).(map[string]any)
	s.mu.Unlock()

	if !ok {
		merged := make(map[string]any, len(partial))
		for k, v := range partial {
			merged[k] = v
		}
		s.Set(path, merged)
		return
	}

	s.mu.Lock()
	old := make(map[string]any, len(current))
	for k, v := range current {
		old[k] = v
	}
	for k, v := range partial {
		current[k] = v
	}
	notify := s.collectNotifications(path, current, old)
	s.mu.Unlock()

	for _, n := range notify {
		n()
	}
}

// Update applies each path/value pair via Set, sequentially. Listeners
// can observe intermediate states between pairs; this is not a
// transaction.
func (s *Store) Update(values map[string]any) {
	for path, value := range values {
		s.Set(path, value)
	}
}

// Subscribe registers fn for path and fires it immediately with the
// current value (old nil). It fires again on every subsequent change to
// the path or its descendants. The returned function unsubscribes.
func (s *Store) Subscribe(path string, fn ChangeFunc) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[path] = append(s.subs[path], subscription{id: id, fn: fn})
	current := s.get(path)
	s.mu.Unlock()

	fn(current, nil)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subs[path]
		for i, sub := range subs {
			if sub.id == id {
				s.subs[path] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// OnChange registers a global listener receiving every write.
// The returned function unsubscribes.
func (s *Store) OnChange(fn GlobalFunc) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.global[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.global, id)
	}
}

// Reset restores the initial default snapshot and re-fires every
// existing subscription with the restored value at its path.
func (s *Store) Reset() {
	s.mu.Lock()
	oldByPath := make(map[string]any, len(s.subs))
	for path := range s.subs {
		oldByPath[path] = s.get(path)
	}
	s.root = s.defaults()

	var notify []func()
	for path, subs := range s.subs {
		value := s.get(path)
		old := oldByPath[path]
		for _, sub := range subs {
			fn := sub.fn
			notify = append(notify, func() { fn(value, old) })
		}
	}
	s.mu.Unlock()

	for _, n := range notify {
		n()
	}
}
