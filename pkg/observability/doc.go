/*
Package observability turns engine lifecycle events into Prometheus metrics
and structured log lines.

Metrics.Hooks returns a domain.LifecycleHooks value that can be passed to
tutor.WithLifecycleHooks; Metrics.Handler serves the registry for scraping.
*/
package observability
