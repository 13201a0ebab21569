package blackboard

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/goliatone/go-blackboard/internal/clone"
)

// Dump writes a human-readable snapshot of this scope to w: every key, its
// remap target, its locked port type and a printable rendering of the value.
// Formatting one entry is best effort; a misbehaving value never aborts the
// dump of the others.
func (b *Blackboard) Dump(w io.Writer) error {
	type row struct {
		key    string
		remap  string
		locked string
		value  string
	}

	b.mu.Lock()
	rows := make([]row, 0, len(b.entries)+len(b.remap))
	seen := make(map[string]struct{}, len(b.entries))
	for key, e := range b.entries {
		seen[key] = struct{}{}
		r := row{key: key, remap: b.remap[key], value: renderValue(e.value)}
		if e.lockedType != nil {
			r.locked = e.lockedType.String()
		}
		rows = append(rows, r)
	}
	for key, external := range b.remap {
		if _, ok := seen[key]; !ok {
			rows = append(rows, row{key: key, remap: external, value: "<empty>"})
		}
	}
	b.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].key < rows[j].key })

	var sb strings.Builder
	fmt.Fprintf(&sb, "blackboard %s (%d entries)\n", b.id, len(rows))
	for _, r := range rows {
		fmt.Fprintf(&sb, "  %s", r.key)
		if r.locked != "" {
			fmt.Fprintf(&sb, " [%s]", r.locked)
		}
		fmt.Fprintf(&sb, " = %s", r.value)
		if r.remap != "" {
			fmt.Fprintf(&sb, " (remapped to %q)", r.remap)
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// DebugString returns the Dump output as a string.
func (b *Blackboard) DebugString() string {
	var sb strings.Builder
	_ = b.Dump(&sb)
	return sb.String()
}

// Snapshot returns a deep-copied view of every key visible from this scope,
// following remaps into live parents. Entries that hold no value yet are
// omitted. Mutating the result does not touch the blackboard.
func (b *Blackboard) Snapshot() map[string]any {
	b.mu.Lock()
	keys := make([]string, 0, len(b.entries)+len(b.remap))
	seen := make(map[string]struct{}, len(b.entries))
	for key := range b.entries {
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for key := range b.remap {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	b.mu.Unlock()

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		value, ok := b.TryGetValue(key)
		if !ok || value.Empty() {
			continue
		}
		out[key] = clone.Any(value.Interface())
	}
	return out
}

// renderValue formats v, recovering from panics raised by a value's own
// formatting methods.
func renderValue(v Value) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("<unprintable: %v>", r)
		}
	}()
	return v.String()
}
