// Package config defines the relay's configuration model and loading
// pipeline.
//
// Configuration is loaded from a YAML file, defaults are applied, and the
// result is validated before the process starts. Environment variables in
// the form COURIER_SECTION_FIELD (e.g. COURIER_SERVER_LISTEN_ADDRESS)
// override file values and are applied after defaults.
//
// Sections:
//
//	server:        listen address, HTTP timeouts, CORS, graceful shutdown
//	upstream:      base URL, paths, retry and backoff policy
//	credentials:   credential file path, hot reload, failure policy
//	challenge:     token solver sidecar
//	models:        context window per model prefix
//	conversations: session store bounds, sweep schedule, usage persistence
//	telemetry:     logging level/format, metrics endpoint
package config
