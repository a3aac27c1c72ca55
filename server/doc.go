// Package server provides the HTTP server step: a Gin engine behind an h2c
// handler whose listener is bound during startup and served afterwards.
//
// Binding and serving are separate so that a port conflict fails startup
// before the service reports itself as listening:
//
//	srv := server.New(cfg, log)
//	if err := srv.Listen(); err != nil { ... }   // LISTENER_BIND_FAILED
//	go srv.Serve(ctx)
//
// Built-in middleware (server/middleware): panic recovery, request IDs and
// request logging. Built-in endpoints (server/endpoint): /health and /info.
package server
