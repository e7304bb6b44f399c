// Package metrics collects Prometheus metrics for the relay.
//
// The Collector owns a private registry and exposes it through a promhttp
// handler. It records upstream dispatch outcomes, completion sizes, stream
// chunk counts, credential pool health, and tracked conversation counts
// under the courier_relay namespace.
package metrics
