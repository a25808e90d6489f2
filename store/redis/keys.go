package redis

import "strconv"

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "teu:"

// keyspace builds the Redis keys for one prefix.
type keyspace struct {
	prefix string
}

// delayIndex is the sorted set of due timestamps: {prefix}delay
func (k keyspace) delayIndex() string { return k.prefix + "delay" }

// bucket is the list of jobs due at due: {prefix}delay:{due}
func (k keyspace) bucket(due int64) string {
	return k.prefix + "delay:" + strconv.FormatInt(due, 10)
}

// occurrences is the set of due timestamps of a job name: {prefix}delay:{hash}
func (k keyspace) occurrences(nameHash string) string { return k.prefix + "delay:" + nameHash }

// activeIndex is the list of queue tokens: {prefix}queue
func (k keyspace) activeIndex() string { return k.prefix + "queue" }

// queue is the list of ready jobs: {prefix}queue:{name}
func (k keyspace) queue(name string) string { return k.prefix + "queue:" + name }

// dlqIndex is the sorted set of dead-letter ids: {prefix}failed
func (k keyspace) dlqIndex() string { return k.prefix + "failed" }

// dlqEntry is a dead-letter entry: {prefix}failed:{id}
func (k keyspace) dlqEntry(id string) string { return k.prefix + "failed:" + id }
