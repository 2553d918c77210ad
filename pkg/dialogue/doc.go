/*
Package dialogue implements the per-turn exchange with the generation backend.

An Engine appends the caller's utterance to the session history, asks the
configured ports.Generator for a reply using the locale's instructions and the
full bounded history, appends the reply, and enforces the history bound.
Failures are always reported as *domain.BackendError; the engine never retries.
*/
package dialogue
