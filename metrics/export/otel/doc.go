// Package otel bridges authcore metrics into an OpenTelemetry meter.
//
// The exporter registers observable counters that read the engine's
// lock-free snapshot inside the meter's collection callback; no goroutine
// or polling loop is involved.
package otel
