/*
Package session implements per-call session management.

It wraps a ports.SessionStore with the get / create-or-reset / remove contract
used by the call flow, a per-call_id critical section for read-modify-write
turns, optional distributed locking across replicas, and idle-session eviction.
*/
package session
