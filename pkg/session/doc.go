/*
Package session implements session management and persistence orchestration.

A Manager serializes every operation on a session behind a per-session lock,
optionally backed by a distributed lock for multi-replica deployments. It keeps
live sequencers in memory and rebuilds them from the state store by replaying
the recorded sources, so the namespace itself never needs to be serialized.
*/
package session
