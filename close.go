package graphcheck

import "errors"

// Close releases resources held by this Checker.
//
// It closes the sinks passed with WithSinks and, for a Checker returned by
// Open, the stores. A run in progress is cancelled and waited for.
func (c *Checker) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.core != nil {
		c.core.Cancel()
	}
	c.mu.Unlock()
	c.running.Wait()

	var errs []error
	for _, s := range c.opts.sinks {
		errs = append(errs, s.Close())
	}
	if c.ownsStores {
		errs = append(errs, c.stores.Close())
	}
	return errors.Join(errs...)
}
