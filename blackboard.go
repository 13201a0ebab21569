// Package blackboard implements the shared data store behaviour-tree nodes
// use to exchange typed values without compile-time knowledge of each other.
// A blackboard is one scope in a nested hierarchy: child scopes remap their
// local key names onto parent keys at composition time, and a declared port
// type locks the value type a key will accept from then on.
package blackboard

import (
	"errors"
	"reflect"
	"sync"
	"weak"

	"github.com/google/uuid"
)

// Blackboard is a mutex-guarded map from key to type-erased value, with an
// optional non-owning reference to a parent scope and a per-key remapping
// table consulted before any local lookup.
type Blackboard struct {
	id  uuid.UUID
	cfg boardConfig

	mu        sync.Mutex
	entries   map[string]*entry
	remap     map[string]string
	parent    weak.Pointer[Blackboard]
	hasParent bool
}

// entry pairs a stored value with the port type locked for its key. The
// value may be empty when the entry exists only for type bookkeeping.
type entry struct {
	value      Value
	lockedType reflect.Type
}

// New creates a root scope.
func New(opts ...Option) *Blackboard {
	return &Blackboard{
		id:      uuid.New(),
		cfg:     applyOptions(opts),
		entries: make(map[string]*entry),
		remap:   make(map[string]string),
	}
}

// NewScoped creates a child scope of parent. The reference is non-owning:
// it does not keep the parent alive, and once the parent is gone every
// remapped key quietly falls back to local behaviour.
func NewScoped(parent *Blackboard, opts ...Option) *Blackboard {
	b := New(opts...)
	if parent != nil {
		b.parent = weak.Make(parent)
		b.hasParent = true
	}
	return b
}

// ID returns the identity of this scope, used by diagnostics.
func (b *Blackboard) ID() uuid.UUID {
	return b.id
}

// AddRemap redirects the local key onto external in the parent scope. It is
// meaningful only on a scope created with a parent; the tree-construction
// collaborator is responsible for keeping remap chains acyclic, a chain that
// loops back onto itself will recurse until the stack gives out.
func (b *Blackboard) AddRemap(local, external string) {
	b.mu.Lock()
	b.remap[local] = external
	b.mu.Unlock()
}

// TryGetValue returns the type-erased value stored for key, following the
// remap chain upward. The second result is false when the key is absent; an
// existing entry whose value was never written still counts as present.
func (b *Blackboard) TryGetValue(key string) (Value, bool) {
	b.mu.Lock()
	if parent, external, ok := b.redirectLocked(key); ok {
		// The local lock must not be held while taking the parent's:
		// lock order is strictly ancestor-only.
		b.mu.Unlock()
		return parent.TryGetValue(external)
	}
	e, ok := b.entries[key]
	if !ok {
		b.mu.Unlock()
		return Value{}, false
	}
	value := e.value
	b.mu.Unlock()
	return value, true
}

// Get reads key as T. It fails with a MissingKeyError when the key is absent
// along the remap chain and a TypeMismatchError when the stored value cannot
// be delivered as T.
func Get[T any](b *Blackboard, key string) (T, error) {
	value, ok := b.TryGetValue(key)
	if !ok {
		var zero T
		return zero, &MissingKeyError{Key: key}
	}
	out, err := Cast[T](value)
	if err != nil {
		var mismatch *TypeMismatchError
		if errors.As(err, &mismatch) {
			mismatch.Key = key
		}
		return out, err
	}
	return out, nil
}

// Set writes value under key. When the key is remapped to a live parent the
// write is forwarded there and only a local placeholder records the type; a
// local write against a locked port type fails with a TypeLockError unless
// the type matches or the value is a string.
func Set[T any](b *Blackboard, key string, value T) error {
	return b.setValue(key, reflect.TypeFor[T](), NewValue(value))
}

// SetAny is the dynamic counterpart of Set, for callers that only hold a
// type-erased value (script engines, declarative loaders).
func (b *Blackboard) SetAny(key string, value any) error {
	v := NewValue(value)
	return b.setValue(key, v.Type(), v)
}

func (b *Blackboard) setValue(key string, static reflect.Type, v Value) error {
	b.mu.Lock()
	if parent, external, ok := b.redirectLocked(key); ok {
		if _, exists := b.entries[key]; !exists {
			// Placeholder so the port type stays queryable locally even
			// though the live value belongs to the parent.
			b.entries[key] = &entry{lockedType: static}
		}
		b.mu.Unlock()
		return parent.setValue(external, static, v)
	}
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		b.entries[key] = &entry{value: v}
		return nil
	}
	if locked := e.lockedType; locked != nil && locked != static && locked != v.Type() && !v.IsString() {
		return &TypeLockError{Key: key, Locked: locked, Requested: static}
	}
	e.value = v
	return nil
}

// SetPortType declares the type key must hold from now on. Declaring a type
// on a key that already holds an incompatible value does not fail; only
// subsequent writes are validated. Re-declaring a different type replaces
// the lock and reports a TypeLockError so the declaration system can flag
// the conflict.
func (b *Blackboard) SetPortType(key string, portType reflect.Type) error {
	if portType == nil {
		return &TypeLockError{Key: key}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		b.entries[key] = &entry{lockedType: portType}
		return nil
	}
	previous := e.lockedType
	e.lockedType = portType
	if previous != nil && previous != portType {
		return &TypeLockError{Key: key, Locked: previous, Requested: portType}
	}
	return nil
}

// DeclarePortType is a typed convenience over SetPortType.
func DeclarePortType[T any](b *Blackboard, key string) error {
	return b.SetPortType(key, reflect.TypeFor[T]())
}

// PortType returns the locked type for key, nil when none was declared.
func (b *Blackboard) PortType(key string) reflect.Type {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[key]; ok {
		return e.lockedType
	}
	return nil
}

// redirectLocked resolves a remap hop. Callers must hold b.mu. It reports
// true only when key is remapped and the parent is still alive; a collected
// parent turns every remap inert.
func (b *Blackboard) redirectLocked(key string) (*Blackboard, string, bool) {
	if !b.hasParent {
		return nil, "", false
	}
	external, ok := b.remap[key]
	if !ok {
		return nil, "", false
	}
	parent := b.parent.Value()
	if parent == nil {
		return nil, "", false
	}
	return parent, external, true
}
