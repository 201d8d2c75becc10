// Package api hosts the HTTP handlers that front the Harmonia REST API.
//
// The handlers assembled by Handler coordinate request validation, session
// awareness, and response shaping while delegating persistence to
// storage.Repository implementations injected at construction time.
// Authentication and session lifecycle management are provided by
// auth.SessionManager instances passed into the handler; the package does not
// reach for globals or singletons and expects callers to supply fully
// configured dependencies.
//
// Handler implementations assume upstream middleware from internal/server has
// already enforced authentication, rate limiting, and logging concerns. New
// routes should preserve that contract by avoiding duplicate validation and
// by leaning on the middleware guarantees established in the server stack.
package api
