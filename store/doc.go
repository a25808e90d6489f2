// Package store defines the aggregate persistence interface.
//
// Each subsystem (delay, queue, dlq) defines its own store interface. The
// composite [Store] composes them all. A single backend need only implement
// Store to satisfy every subsystem's persistence contract.
//
// The composite interface:
//
//	type Store interface {
//	    delay.Store
//	    queue.Store
//	    dlq.Store
//
//	    Ping(ctx context.Context) error
//	    Close() error
//	}
//
// # Available Backends
//
//   - store/memory: in-memory store for development and testing
//   - store/redis: Redis backend, shareable by several scheduler processes
//
// # Usage
//
//	import "github.com/xraph/crontab/store/redis"
//
//	opts, err := goredis.ParseURL("redis://localhost:6379/0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s := redis.New(goredis.NewClient(opts))
//	defer s.Close()
//
//	eng, err := engine.New(s, engine.WithRegistry(reg))
package store
