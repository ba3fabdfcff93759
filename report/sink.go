package report

import (
	"context"
	"log/slog"
	"sync"
)

// CollectingSink keeps every inconsistency in memory.
type CollectingSink struct {
	mu    sync.Mutex
	items []Inconsistency
}

// NewCollectingSink returns an empty collecting sink.
func NewCollectingSink() *CollectingSink {
	return &CollectingSink{}
}

func (c *CollectingSink) Record(in Inconsistency) error {
	c.mu.Lock()
	c.items = append(c.items, in)
	c.mu.Unlock()
	return nil
}

func (c *CollectingSink) Close() error { return nil }

// Inconsistencies returns a copy of everything recorded.
func (c *CollectingSink) Inconsistencies() []Inconsistency {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Inconsistency(nil), c.items...)
}

// OfKind returns the recorded inconsistencies of kind k.
func (c *CollectingSink) OfKind(k Kind) []Inconsistency {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Inconsistency
	for _, in := range c.items {
		if in.Kind == k {
			out = append(out, in)
		}
	}
	return out
}

// Len returns the number of recorded inconsistencies.
func (c *CollectingSink) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// SlogSink logs inconsistencies, warnings at warn level and errors at error level.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink returns a sink logging to l.
func NewSlogSink(l *slog.Logger) *SlogSink {
	return &SlogSink{logger: l}
}

func (s *SlogSink) Record(in Inconsistency) error {
	level := slog.LevelError
	if in.Warning {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("kind", string(in.Kind)),
		slog.String("entity", string(in.Entity)),
		slog.Int64("id", in.ID),
	}
	if len(in.Related) > 0 {
		related := make([]string, len(in.Related))
		for i, r := range in.Related {
			related[i] = r.String()
		}
		attrs = append(attrs, slog.Any("related", related))
	}
	if in.Detail != "" {
		attrs = append(attrs, slog.String("detail", in.Detail))
	}
	s.logger.LogAttrs(context.Background(), level, "inconsistency", attrs...)
	return nil
}

func (s *SlogSink) Close() error { return nil }
