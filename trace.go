package blackboard

import (
	"encoding/json"
)

// Trace captures how a key lookup resolved across the scope hierarchy, one
// hop per blackboard the remap chain walked through.
type Trace struct {
	Key  string `json:"key"`
	Hops []Hop  `json:"hops"`
}

// Hop details a single scope's contribution to a traced lookup.
type Hop struct {
	Board      string `json:"board"`
	Key        string `json:"key"`
	RemappedTo string `json:"remapped_to,omitempty"`
	Found      bool   `json:"found"`
	Value      any    `json:"value,omitempty"`
}

// ResolveTrace walks the remap chain for key and records what each scope
// did with it. The final hop carries the value when one was found.
func (b *Blackboard) ResolveTrace(key string) Trace {
	trace := Trace{Key: key}
	board, current := b, key
	for {
		board.mu.Lock()
		parent, external, redirected := board.redirectLocked(current)
		if redirected {
			board.mu.Unlock()
			trace.Hops = append(trace.Hops, Hop{
				Board:      board.id.String(),
				Key:        current,
				RemappedTo: external,
			})
			board, current = parent, external
			continue
		}
		hop := Hop{Board: board.id.String(), Key: current}
		if e, ok := board.entries[current]; ok {
			hop.Found = true
			if !e.value.Empty() {
				hop.Value = e.value.Interface()
			}
		}
		board.mu.Unlock()
		trace.Hops = append(trace.Hops, hop)
		return trace
	}
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously generated via ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
