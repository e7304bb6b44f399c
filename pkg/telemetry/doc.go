// Package telemetry provides observability for the relay.
//
// Subpackages:
//
//   - logging: structured slog setup with credential redaction
//   - metrics: Prometheus metrics collection and the /metrics endpoint
//
// Credential material is never logged. The logging setup redacts attribute
// keys that carry session tokens or cookies, and the rest of the codebase
// logs credentials only by their fragment.
package telemetry
