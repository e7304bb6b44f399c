// Package server assembles the relay's HTTP server: route registration,
// the middleware chain, and graceful shutdown on SIGTERM.
package server
