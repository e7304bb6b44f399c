// Package logging configures the process-wide structured logger.
//
// The logger is built on log/slog with a JSON or text handler. Attribute
// keys that carry secret material (session tokens, cookies, authorization
// headers) are redacted before the record is written, so a careless log
// call cannot leak a credential.
package logging
