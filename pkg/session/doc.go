/*
Package session serializes access to persisted snapshots.

A table or dashboard handle is not safe for concurrent mutation. When several
callers (CLI invocations, MCP tool calls, replicas behind a shared Redis) work
on the same persisted snapshot, the Manager makes every read-modify-write of a
session happen under one lock: a reference-counted in-process mutex, plus an
optional distributed lock.
*/
package session
