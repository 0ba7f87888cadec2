// Package prometheus exposes authcore metrics to a Prometheus scraper.
//
// [Collector] implements prometheus.Collector over the engine's lock-free
// snapshot, so every scrape reads current counter values without touching
// the login hot path. [Handler] wires the collector into promhttp for the
// common single-engine case.
package prometheus
