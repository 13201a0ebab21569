package blackboard

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"testing"
)

type waypoint struct {
	X, Y float64
}

func TestGetMissingKey(t *testing.T) {
	b := New()
	if _, err := Get[string](b, "never_written"); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
	var missing *MissingKeyError
	_, err := Get[int](b, "other")
	if !errors.As(err, &missing) || missing.Key != "other" {
		t.Fatalf("expected MissingKeyError carrying the key, got %v", err)
	}
	if _, ok := b.TryGetValue("never_written"); ok {
		t.Fatalf("expected TryGetValue to report absence")
	}
}

func TestRoundTrip(t *testing.T) {
	b := New()
	if err := Set(b, "text", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Set(b, "count", 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Set(b, "goal", waypoint{X: 1, Y: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, err := Get[string](b, "text"); err != nil || got != "hello" {
		t.Fatalf("string round trip failed: %q, %v", got, err)
	}
	if got, err := Get[int](b, "count"); err != nil || got != 7 {
		t.Fatalf("int round trip failed: %d, %v", got, err)
	}
	if got, err := Get[waypoint](b, "goal"); err != nil || got != (waypoint{X: 1, Y: 2}) {
		t.Fatalf("struct round trip failed: %+v, %v", got, err)
	}
}

func TestGetTypeMismatch(t *testing.T) {
	b := New()
	if err := Set(b, "goal", waypoint{X: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := Get[int](b, "goal")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) || mismatch.Key != "goal" {
		t.Fatalf("expected TypeMismatchError carrying the key, got %v", err)
	}
}

func TestFirstWriteDoesNotLockType(t *testing.T) {
	b := New()
	if err := Set(b, "free", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Set(b, "free", "now a string"); err != nil {
		t.Fatalf("expected unlocked key to accept a new type: %v", err)
	}
	if err := Set(b, "free", 2.5); err != nil {
		t.Fatalf("expected unlocked key to accept a new type: %v", err)
	}
}

func TestPortTypeLock(t *testing.T) {
	b := New()
	if err := DeclarePortType[int](b, "count"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Set(b, "count", 1); err != nil {
		t.Fatalf("exact locked type must succeed: %v", err)
	}
	err := Set(b, "count", 1.5)
	if !errors.Is(err, ErrTypeLocked) {
		t.Fatalf("expected ErrTypeLocked, got %v", err)
	}
	var lockErr *TypeLockError
	if !errors.As(err, &lockErr) || lockErr.Key != "count" || lockErr.Locked != reflect.TypeFor[int]() {
		t.Fatalf("unexpected lock error contents: %v", err)
	}
	// Strings satisfy any locked type: the escape hatch for textual
	// configuration values.
	if err := Set(b, "count", "7"); err != nil {
		t.Fatalf("string write into locked key must succeed: %v", err)
	}
	if got, err := Get[string](b, "count"); err != nil || got != "7" {
		t.Fatalf("expected overwritten string value, got %q, %v", got, err)
	}
}

func TestStringLockedKeyRejectsNonString(t *testing.T) {
	// The escape hatch is asymmetric on purpose.
	b := New()
	if err := DeclarePortType[string](b, "name"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Set(b, "name", "valid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Set(b, "name", 3); !errors.Is(err, ErrTypeLocked) {
		t.Fatalf("expected ErrTypeLocked for non-string write, got %v", err)
	}
}

func TestSetPortTypeDoesNotRetroactivelyFail(t *testing.T) {
	b := New()
	if err := Set(b, "value", 1.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DeclarePortType[int](b, "value"); err != nil {
		t.Fatalf("declaring over an incompatible value must not fail: %v", err)
	}
	if got, err := Get[float64](b, "value"); err != nil || got != 1.5 {
		t.Fatalf("existing value must survive the declaration: %v, %v", got, err)
	}
	if err := Set(b, "value", 2.5); !errors.Is(err, ErrTypeLocked) {
		t.Fatalf("subsequent writes must be validated, got %v", err)
	}
}

func TestSetPortTypeConflictReported(t *testing.T) {
	b := New()
	if err := DeclarePortType[int](b, "count"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DeclarePortType[float64](b, "count"); !errors.Is(err, ErrTypeLocked) {
		t.Fatalf("expected conflict error on re-declaration, got %v", err)
	}
	if got := b.PortType("count"); got != reflect.TypeFor[float64]() {
		t.Fatalf("re-declaration replaces the lock, got %v", got)
	}
}

func TestPortTypeUnknownKey(t *testing.T) {
	b := New()
	if got := b.PortType("absent"); got != nil {
		t.Fatalf("expected nil port type, got %v", got)
	}
}

func TestRemapWriteReachesParent(t *testing.T) {
	root := New()
	child := NewScoped(root)
	child.AddRemap("path", "navigation_path")

	if err := Set(child, "path", "A->B"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := Get[string](root, "navigation_path"); err != nil || got != "A->B" {
		t.Fatalf("parent must observe the remapped write, got %q, %v", got, err)
	}
	if got, err := Get[string](child, "path"); err != nil || got != "A->B" {
		t.Fatalf("child read must forward through the remap, got %q, %v", got, err)
	}
	// The parent has no knowledge of the child's local name.
	if _, err := Get[string](root, "path"); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey on the parent, got %v", err)
	}
}

func TestRemapReadSeesParentWrite(t *testing.T) {
	root := New()
	child := NewScoped(root)
	child.AddRemap("path", "navigation_path")

	if err := Set(root, "navigation_path", "C->D"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := Get[string](child, "path"); err != nil || got != "C->D" {
		t.Fatalf("child must see the parent value, got %q, %v", got, err)
	}
}

func TestRemapShadowsLocalEntry(t *testing.T) {
	root := New()
	child := NewScoped(root)
	if err := Set(child, "path", "local"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	child.AddRemap("path", "navigation_path")
	if err := Set(root, "navigation_path", "remote"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Once a remap exists the local entry is never consulted.
	if got, err := Get[string](child, "path"); err != nil || got != "remote" {
		t.Fatalf("remap must win over the local entry, got %q, %v", got, err)
	}
}

func TestRemapChainIsTransitive(t *testing.T) {
	root := New()
	middle := NewScoped(root)
	child := NewScoped(middle)
	middle.AddRemap("mid_path", "root_path")
	child.AddRemap("path", "mid_path")

	if err := Set(child, "path", "A->B->C"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := Get[string](root, "root_path"); err != nil || got != "A->B->C" {
		t.Fatalf("write must reach the root through two hops, got %q, %v", got, err)
	}
	if got, err := Get[string](child, "path"); err != nil || got != "A->B->C" {
		t.Fatalf("read must resolve through two hops, got %q, %v", got, err)
	}
}

func TestRemappedWriteRecordsPortTypeLocally(t *testing.T) {
	root := New()
	child := NewScoped(root)
	child.AddRemap("out", "result")

	if err := Set(child, "out", 3.14); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := child.PortType("out"); got != reflect.TypeFor[float64]() {
		t.Fatalf("placeholder must record the written type, got %v", got)
	}
	if got, err := Get[float64](root, "result"); err != nil || got != 3.14 {
		t.Fatalf("value must live in the parent, got %v, %v", got, err)
	}
}

func TestDeadParentFallsBackToLocal(t *testing.T) {
	child := func() *Blackboard {
		parent := New()
		c := NewScoped(parent)
		c.AddRemap("path", "navigation_path")
		return c
	}()

	// The parent reference is weak; once the parent is collected the remap
	// must go inert instead of dangling.
	runtime.GC()
	runtime.GC()

	if err := Set(child, "path", "local"); err != nil {
		t.Fatalf("write after parent destruction must not fail: %v", err)
	}
	if got, err := Get[string](child, "path"); err != nil || got != "local" {
		t.Fatalf("read after parent destruction must not fail, got %q, %v", got, err)
	}
	if _, ok := child.TryGetValue("unwritten"); ok {
		t.Fatalf("expected absence for unwritten key")
	}
}

func TestTryGetValueOnDeclaredButUnwrittenKey(t *testing.T) {
	b := New()
	if err := DeclarePortType[int](b, "pending"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, ok := b.TryGetValue("pending")
	if !ok {
		t.Fatalf("declared entry must be present")
	}
	if !value.Empty() {
		t.Fatalf("declared entry must hold no value yet")
	}
}

func TestConcurrentWritersDistinctKeys(t *testing.T) {
	b := New()
	const writers = 8
	const rounds = 200

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", id)
			for r := 0; r < rounds; r++ {
				if err := Set(b, key, r); err != nil {
					t.Errorf("writer %d: %v", id, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < writers; i++ {
		key := fmt.Sprintf("key-%d", i)
		if got, err := Get[int](b, key); err != nil || got != rounds-1 {
			t.Fatalf("key %s: got %d, %v", key, got, err)
		}
	}
}

func TestConcurrentWritersSameKey(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for _, value := range []string{"first", "second"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			for r := 0; r < 500; r++ {
				if err := Set(b, "contested", v); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}(value)
	}
	wg.Wait()

	got, err := Get[string](b, "contested")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first" && got != "second" {
		t.Fatalf("expected one of the written values, got %q", got)
	}
}

func TestConcurrentRemappedAccess(t *testing.T) {
	root := New()
	childA := NewScoped(root)
	childB := NewScoped(root)
	childA.AddRemap("shared", "hub")
	childB.AddRemap("shared", "hub")

	var wg sync.WaitGroup
	for i, board := range []*Blackboard{childA, childB} {
		wg.Add(1)
		go func(id int, b *Blackboard) {
			defer wg.Done()
			for r := 0; r < 300; r++ {
				if err := Set(b, "shared", id); err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if _, ok := b.TryGetValue("shared"); !ok {
					t.Errorf("expected value to be present")
					return
				}
			}
		}(i, board)
	}
	wg.Wait()

	if got, err := Get[int](root, "hub"); err != nil || (got != 0 && got != 1) {
		t.Fatalf("expected one of the written values at the hub, got %d, %v", got, err)
	}
}
