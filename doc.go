/*
Package parley is a voice-call dialogue orchestrator.

A telephony gateway posts one webhook per caller action. Parley answers each
with markup that tells the gateway what to say and what to capture next,
keeping a bounded conversation history per call and asking a generation
backend (Anthropic or OpenAI) for every reply.

# Architecture

  - pkg/language: the read-only catalog of supported locales.
  - pkg/session: per-call state with per-call mutual exclusion over a pluggable store.
  - pkg/dialogue: one turn against the generation backend.
  - pkg/callflow: the ENTRY → LANGUAGE_SELECT → CONVERSING → TERMINATED state machine.
  - pkg/adapters: memory and Redis stores, Anthropic and OpenAI generators, TwiML and HTTP.

# Usage

	svc, err := parley.New(
		parley.WithGenerator(anthropic.New(func(o *anthropic.Options) { o.APIKey = key })),
	)
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":5000", httpAdapter.NewHandler(svc.Controller()))

The Simulator drives the same controller from a terminal, which is handy for
trying prompts without a phone line.
*/
package parley
