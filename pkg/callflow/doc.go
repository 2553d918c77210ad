/*
Package callflow implements the per-call state machine driven by gateway webhooks.

Each inbound signal is handled independently:

	ENTRY ──menu──▶ LANGUAGE_SELECT ──greeting──▶ CONVERSING ──farewell──▶ TERMINATED
	                                                 ▲    │
	                                                 └────┘ reply / no-input / error prompt

The Controller never fails a call because of an internal error. Backend and
store failures are answered with the locale's error prompt and capture is
re-armed; a turn for an unknown call is redirected to the entry handler.
Responses are gateway-neutral instruction lists rendered by an adapter
(see pkg/adapters/twiml).
*/
package callflow
