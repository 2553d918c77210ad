/*
Package ports defines the driven ports (interfaces) for the Parley orchestrator.

These interfaces decouple the call flow from external implementations, allowing
the controller and dialogue engine to work with various storage backends,
generation providers, and lock services.

# Key Interfaces

  - SessionStore: Persists and loads per-call Sessions.
  - Pruner: Optional store capability to evict idle sessions.
  - DistributedLocker: Provides distributed locking for concurrent access to a call.
  - Generator: Produces the assistant reply for a bounded conversation.
*/
package ports
