package server

import (
	"context"
	"sort"

	"github.com/kbukum/storefront/component"
	apperrors "github.com/kbukum/storefront/errors"
)

const componentName = "http-server"

var (
	_ component.Component     = (*ServerComponent)(nil)
	_ component.Runner        = (*ServerComponent)(nil)
	_ component.Describable   = (*ServerComponent)(nil)
	_ component.RouteProvider = (*ServerComponent)(nil)
)

// ServerComponent wraps Server as the http-server startup step. Start binds
// the listener, Run serves on it and Stop drains it.
type ServerComponent struct {
	server *Server
}

// NewComponent returns a component.Component backed by the given Server.
func NewComponent(s *Server) *ServerComponent {
	return &ServerComponent{server: s}
}

// Server returns the wrapped server.
func (sc *ServerComponent) Server() *Server { return sc.server }

// Name returns the component name used for registration.
func (sc *ServerComponent) Name() string { return componentName }

// Start binds the listener. A taken or invalid address yields LISTENER_BIND_FAILED.
func (sc *ServerComponent) Start(_ context.Context) error {
	if err := sc.server.Listen(); err != nil {
		return apperrors.ListenerBindFailed(sc.server.config.Addr, err)
	}
	return nil
}

// Run serves HTTP until ctx is canceled or the server is shut down.
func (sc *ServerComponent) Run(ctx context.Context) error {
	if err := sc.server.Serve(ctx); err != nil {
		return apperrors.ServeFailed(componentName, err)
	}
	return nil
}

// Stop drains in-flight requests within ctx's deadline.
func (sc *ServerComponent) Stop(ctx context.Context) error {
	return sc.server.Shutdown(ctx)
}

// Health returns the health status of the server.
func (sc *ServerComponent) Health(_ context.Context) component.Health {
	sc.server.mu.Lock()
	bound := sc.server.listener != nil
	sc.server.mu.Unlock()
	if bound {
		return component.Health{Name: componentName, Status: component.StatusHealthy}
	}
	return component.Health{
		Name:    componentName,
		Status:  component.StatusUnhealthy,
		Message: "HTTP listener not bound",
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (sc *ServerComponent) Describe() component.Description {
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: sc.server.Addr(),
	}
}

// Routes returns all registered HTTP routes for the startup summary.
func (sc *ServerComponent) Routes() []component.Route {
	ginRoutes := sc.server.engine.Routes()

	// API routes first (by path), then system routes.
	sort.Slice(ginRoutes, func(i, j int) bool {
		iSys := systemPaths[ginRoutes[i].Path]
		jSys := systemPaths[ginRoutes[j].Path]
		if iSys != jSys {
			return !iSys
		}
		if ginRoutes[i].Path != ginRoutes[j].Path {
			return ginRoutes[i].Path < ginRoutes[j].Path
		}
		return methodOrder(ginRoutes[i].Method) < methodOrder(ginRoutes[j].Method)
	})

	routes := make([]component.Route, 0, len(ginRoutes))
	for _, r := range ginRoutes {
		routes = append(routes, component.Route{
			Method:  r.Method,
			Path:    r.Path,
			Handler: formatHandlerName(r.Handler),
		})
	}
	return routes
}
