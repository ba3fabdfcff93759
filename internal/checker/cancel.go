package checker

import (
	"context"
	"sync/atomic"
)

// Cancellation is the stop flag shared by every pass of one run. Inner loops
// poll it between records.
type Cancellation struct {
	cancelled atomic.Bool
}

// Cancel sets the flag. It may be called from any goroutine.
func (c *Cancellation) Cancel() {
	c.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (c *Cancellation) Cancelled() bool {
	return c.cancelled.Load()
}

// Bind cancels c when ctx is done. The returned func detaches it.
func (c *Cancellation) Bind(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, c.Cancel)
}
