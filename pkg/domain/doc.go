/*
Package domain contains the core domain models for the Parley call orchestrator.

It defines the entities that describe one phone call as a conversation: the
Session keyed by the gateway's call identifier, the ordered Turns of its
history, and the error taxonomy shared by the dialogue engine and the call flow
controller. This package is kept pure and free of external dependencies like
I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Session: Per-call state (selected locale, bounded history, timestamps).
  - Turn: A single {role, content} pair in conversational order.
  - CallState: The position of a call in the ENTRY → LANGUAGE_SELECT → CONVERSING → TERMINATED machine.
  - BackendError: A typed failure of the generation backend, recovered by the controller.
*/
package domain
