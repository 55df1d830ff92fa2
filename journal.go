package reflux

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// JournalRecord is one handled dispatch in a journal.
type JournalRecord struct {
	Position   int64           `json:"position"`
	Definition string          `json:"definition"`
	Tag        string          `json:"tag"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Journal persists handled dispatches so state can be rebuilt later.
type Journal interface {
	// Append stores a record, assigning it the next position.
	Append(ctx context.Context, rec *JournalRecord) error

	// Load returns records with from <= position <= to, in position order.
	// to == -1 means no upper bound.
	Load(ctx context.Context, from, to int64) ([]*JournalRecord, error)

	// Position returns the highest assigned position, 0 when empty.
	Position(ctx context.Context) (int64, error)
}

// journalDispatch records one handled action.
func journalDispatch(ctx context.Context, j Journal, definition, tag string, action Action) error {
	payload, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action %q: %w", tag, err)
	}

	return j.Append(ctx, &JournalRecord{
		Definition: definition,
		Tag:        tag,
		Payload:    payload,
		Timestamp:  time.Now(),
	})
}

// DecodeFunc turns a journal record back into the action it recorded.
type DecodeFunc func(tag string, payload json.RawMessage) (Action, error)

// Replay rebuilds state for definition type D by feeding every journaled
// action for it through a freshly synthesized reducer. Records for other
// definitions are skipped. An empty journal yields nil state, which the next
// dispatch resolves to the initial template as usual.
func Replay[D any](ctx context.Context, r *Registry, j Journal, decode DecodeFunc) (any, error) {
	reduce := CreateReducer[D](r)
	name := definitionType[D]().String()

	records, err := j.Load(ctx, 1, -1)
	if err != nil {
		return nil, fmt.Errorf("reflux: load journal: %w", err)
	}

	var state any
	for _, rec := range records {
		if rec.Definition != name {
			continue
		}
		action, err := decode(rec.Tag, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("reflux: decode action at position %d: %w", rec.Position, err)
		}
		state = reduce(state, action)
	}
	return state, nil
}

// MemoryJournal is a simple in-memory implementation of Journal.
type MemoryJournal struct {
	records []*JournalRecord
	mu      sync.RWMutex
}

// NewMemoryJournal creates a new in-memory journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Append implements Journal.
func (m *MemoryJournal) Append(ctx context.Context, rec *JournalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Position = int64(len(m.records)) + 1
	m.records = append(m.records, rec)
	return nil
}

// Load implements Journal.
func (m *MemoryJournal) Load(ctx context.Context, from, to int64) ([]*JournalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*JournalRecord
	for _, rec := range m.records {
		if rec.Position >= from && (to == -1 || rec.Position <= to) {
			result = append(result, rec)
		}
	}
	return result, nil
}

// Position implements Journal.
func (m *MemoryJournal) Position(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 {
		return 0, nil
	}
	return m.records[len(m.records)-1].Position, nil
}
