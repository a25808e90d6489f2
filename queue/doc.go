// Package queue drains the named ready queues and throttles remote
// dispatch per queue.
//
// Ready jobs live in one FIFO list per queue name. Every push also appends
// the queue name to an active index, a FIFO worklist of tokens meaning "this
// queue has at least one pending job". Tokens may be stale or duplicated;
// popping a token for an empty queue is a no-op.
//
// # Consumer
//
// [Consumer] pops tokens from the active index and fully drains each named
// queue, handing every job to a [Dispatcher], until the index is empty.
//
// # Per-Queue Throttling
//
// Use [Config] to bound remote calls per queue:
//
//	queue.Config{
//	    Name:           "webhooks",
//	    MaxConcurrency: 5,  // at most 5 in-flight remote calls
//	    RateLimit:      10, // at most 10 calls/s
//	    RateBurst:      20,
//	}
//
// [Manager] enforces the limits with a token-bucket rate limiter
// (golang.org/x/time/rate) and a concurrency gate. Acquire blocks, so it is
// only called from remote-dispatch goroutines and never from the consumer
// tick itself. Queues without a [Config] have no limits.
package queue
