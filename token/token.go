// Package token holds the name tables of labels, relationship types and
// property keys.
package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/graphcheck/store"
)

// Holder is a loaded token table.
type Holder struct {
	kind  string
	mu    sync.RWMutex
	names map[int32]string
	ids   map[string]int32
	high  int64
}

// NewHolder returns an empty table for kind (e.g. "label").
func NewHolder(kind string) *Holder {
	return &Holder{
		kind:  kind,
		names: make(map[int32]string),
		ids:   make(map[string]int32),
	}
}

// Load reads every in-use token of s.
func Load(ctx context.Context, kind string, s *store.RecordStore[store.Token]) (*Holder, error) {
	h := NewHolder(kind)
	h.high = s.HighID()
	cur := s.OpenCursor(0)
	for id := int64(0); id < s.HighID(); id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t, err := cur.Get(ctx, id, store.LoadCheck)
		if err != nil {
			return nil, fmt.Errorf("load %s tokens: %w", kind, err)
		}
		if t.InUse {
			h.Put(int32(id), t.Name)
		}
	}
	return h, nil
}

// Put registers a token.
func (h *Holder) Put(id int32, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.names[id] = name
	h.ids[name] = id
	h.high = max(h.high, int64(id)+1)
}

// Kind returns the kind of token the table holds.
func (h *Holder) Kind() string { return h.kind }

// HighID returns one past the highest token slot.
func (h *Holder) HighID() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.high
}

// Valid reports whether id names an in-use token.
func (h *Holder) Valid(id int32) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.names[id]
	return ok
}

// Name returns the name of id.
func (h *Holder) Name(id int32) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n, ok := h.names[id]
	return n, ok
}

// ID returns the id of name.
func (h *Holder) ID(name string) (int32, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.ids[name]
	return id, ok
}

// Len returns the number of in-use tokens.
func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.names)
}

// Tokens bundles the three token tables of a store.
type Tokens struct {
	Labels            *Holder
	RelationshipTypes *Holder
	PropertyKeys      *Holder
}

// LoadAll loads the token tables of s.
func LoadAll(ctx context.Context, s *store.Stores) (*Tokens, error) {
	labels, err := Load(ctx, "label", s.LabelTokens)
	if err != nil {
		return nil, err
	}
	types, err := Load(ctx, "relationship type", s.RelationshipTypeTokens)
	if err != nil {
		return nil, err
	}
	keys, err := Load(ctx, "property key", s.PropertyKeyTokens)
	if err != nil {
		return nil, err
	}
	return &Tokens{Labels: labels, RelationshipTypes: types, PropertyKeys: keys}, nil
}
