// Package delay holds jobs until they are due and promotes them into their
// ready queues.
//
// Future jobs live in buckets, one FIFO list per due timestamp, and every
// timestamp holding a bucket is recorded in a sorted delay index. An
// occurrence set per job-name hash remembers which timestamps hold that name
// so a job can be cancelled by name alone.
//
// The [Ticker] runs periodically. Each run takes the smallest indexed
// timestamp not after now, drains its bucket through the promotion callback,
// and repeats until no due timestamp remains. A backlog left by downtime is
// therefore drained in one run.
package delay
