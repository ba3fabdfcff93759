package index

import (
	"fmt"
	"strings"
)

// EntityType is the kind of entity an index or constraint applies to.
type EntityType int

const (
	Node EntityType = iota
	Relationship
)

func (t EntityType) String() string {
	if t == Relationship {
		return "relationship"
	}
	return "node"
}

// MatchType controls how strictly an entity's tokens must match a schema
// entry before it is considered covered.
type MatchType int

const (
	// MatchComplete requires every schema token to be present.
	MatchComplete MatchType = iota
	// MatchPartialAny requires at least one schema token to be present.
	MatchPartialAny
)

func (m MatchType) String() string {
	if m == MatchPartialAny {
		return "partial_any"
	}
	return "complete"
}

// Descriptor describes one online index.
type Descriptor struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Entity EntityType `json:"entity"`
	// Tokens are the label or relationship type ids the index covers.
	Tokens []int32   `json:"tokens"`
	Keys   []int32   `json:"keys"`
	Unique bool      `json:"unique"`
	Match  MatchType `json:"match"`
}

// Matches reports whether an entity with the given tokens is covered.
func (d Descriptor) Matches(tokens []int32) bool {
	hits := 0
	for _, want := range d.Tokens {
		for _, t := range tokens {
			if t == want {
				hits++
				break
			}
		}
	}
	if d.Match == MatchPartialAny {
		return hits > 0
	}
	return len(d.Tokens) > 0 && hits == len(d.Tokens)
}

func (d Descriptor) String() string {
	kind := "INDEX"
	if d.Unique {
		kind = "UNIQUE INDEX"
	}
	keys := make([]string, len(d.Keys))
	for i, k := range d.Keys {
		keys[i] = fmt.Sprint(k)
	}
	return fmt.Sprintf("%s %d ON %s%v(%s)", kind, d.ID, d.Entity, d.Tokens, strings.Join(keys, ","))
}
