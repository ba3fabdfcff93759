package report

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Counts are statistics observed while checking relationships.
type Counts struct {
	Nodes         int64           `json:"nodes"`
	Relationships int64           `json:"relationships"`
	ByType        map[int32]int64 `json:"by_type,omitempty"`
	// StartNodes and EndNodes count relationship endpoints inside the
	// checked node ranges.
	StartNodes int64 `json:"start_nodes"`
	EndNodes   int64 `json:"end_nodes"`
}

// Summary describes the outcome of a run.
type Summary struct {
	RunID      string               `json:"run_id"`
	Total      int64                `json:"total"`
	Warnings   int64                `json:"warnings"`
	SinkErrors int64                `json:"sink_errors,omitempty"`
	ByKind     map[Kind]int64       `json:"by_kind,omitempty"`
	ByEntity   map[EntityType]int64 `json:"by_entity,omitempty"`
	Counts     Counts               `json:"counts"`
	Ranges     int                  `json:"ranges"`
	Duration   time.Duration        `json:"duration"`
	Cancelled  bool                 `json:"cancelled,omitempty"`
}

// Consistent reports whether no errors were found. Warnings do not count.
func (s Summary) Consistent() bool {
	return s.Total-s.Warnings == 0
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s: %d inconsistencies (%d warnings) in %s",
		s.RunID, s.Total, s.Warnings, s.Duration.Round(time.Millisecond))
	kinds := make([]Kind, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&sb, "\n  %-45s %d", k, s.ByKind[k])
	}
	return sb.String()
}
