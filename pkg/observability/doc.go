/*
Package observability turns call flow lifecycle events into logs and Prometheus metrics.

Hooks builds a domain.LifecycleHooks that records every event on a Metrics
registry and logs it with the structured logger. The registry is private to
the process and exposed through Metrics.Handler.
*/
package observability
