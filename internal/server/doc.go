// Package server hosts the Harmonia catalog API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, security
// headers, CORS, auth, rate limiting, audit, and logging so handlers all
// share common protections and instrumentation.
package server
