package checker

import (
	"maps"
	"sync"

	"github.com/hupe1980/graphcheck/report"
)

// counts aggregates the statistics of all tasks of a run.
type counts struct {
	mu sync.Mutex
	c  report.Counts
}

func newCounts() *counts {
	return &counts{c: report.Counts{ByType: make(map[int32]int64)}}
}

// counter is the task-local part, merged once the task is done.
type counter struct {
	nodes         int64
	relationships int64
	byType        map[int32]int64
	startNodes    int64
	endNodes      int64
}

func newCounter() *counter {
	return &counter{byType: make(map[int32]int64)}
}

func (c *counts) merge(l *counter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.c.Nodes += l.nodes
	c.c.Relationships += l.relationships
	c.c.StartNodes += l.startNodes
	c.c.EndNodes += l.endNodes
	for t, n := range l.byType {
		c.c.ByType[t] += n
	}
}

func (c *counts) snapshot() report.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.c
	out.ByType = maps.Clone(c.c.ByType)
	return out
}
