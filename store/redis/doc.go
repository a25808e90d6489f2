// Package redis implements store.Store on Redis lists, sets and sorted sets.
//
// Several scheduler processes may share one Redis database; every pop is a
// single atomic command or Lua script, so a job is handed to at most one
// process. Keys are namespaced by a configurable prefix (default "teu:"):
//
//	teu:delay            ZSET  due timestamps with a non-empty bucket
//	teu:delay:<due>      LIST  jobs due at <due>
//	teu:delay:<md5>      SET   due timestamps scheduled under a job name
//	teu:queue            LIST  active queue tokens
//	teu:queue:<name>     LIST  ready jobs
//	teu:failed           ZSET  dead-letter ids scored by failure time
//	teu:failed:<id>      STRING dead-letter entry as JSON
//
// The caller owns the client lifecycle:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
