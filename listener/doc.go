// Package listener accepts job submissions from other processes.
//
// A request carries five fields:
//
//	{"name": "Mailer/send", "args": {...}, "time": 1700000000, "queue": "mail", "count": [1700000600, 1700000300]}
//
// name, time, queue and count are required; args may be omitted or null.
// count is either the retry stack as absolute unix timestamps (consumed
// from the tail) or a non-negative number of retries that is expanded with
// the engine's backoff strategy. Every request is answered with a single
// token: "success" when the submission was stored, "error" otherwise.
//
// Two transports are provided. [Server] speaks a newline-delimited text
// protocol over TCP with one JSON request per line. [WSHandler] upgrades
// HTTP requests to WebSocket; text frames are decoded as JSON and binary
// frames as MessagePack.
package listener
