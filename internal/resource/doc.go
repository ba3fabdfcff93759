// Package resource governs the memory, concurrency and read throughput of a
// consistency check.
//
//   - Memory: off-heap caches reserve their size up front (fail-fast)
//   - Workers: a weighted semaphore bounds concurrently running tasks
//   - IO: a token bucket throttles store reads
//
// # Memory
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	if err := rc.AcquireMemory(size); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(size)
//
// # Workers
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// All methods are safe for concurrent use, and a nil *Controller is a no-op.
package resource
