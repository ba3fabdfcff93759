package report

import (
	"fmt"
	"strings"
)

// Ref points at a record related to an inconsistency.
type Ref struct {
	Entity EntityType `json:"entity"`
	ID     int64      `json:"id"`
}

func (r Ref) String() string {
	return fmt.Sprintf("%s %d", r.Entity, r.ID)
}

// Inconsistency is one violation found by a check.
type Inconsistency struct {
	RunID   string     `json:"run_id,omitempty"`
	Kind    Kind       `json:"kind"`
	Entity  EntityType `json:"entity"`
	ID      int64      `json:"id"`
	Related []Ref      `json:"related,omitempty"`
	Detail  string     `json:"detail,omitempty"`
	Warning bool       `json:"warning,omitempty"`
}

func (i Inconsistency) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d: %s", i.Entity, i.ID, i.Kind)
	for _, r := range i.Related {
		fmt.Fprintf(&sb, " [%s]", r)
	}
	if i.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", i.Detail)
	}
	return sb.String()
}
