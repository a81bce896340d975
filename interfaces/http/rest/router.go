package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"recipegraph/interfaces/http/rest/handlers"
	"recipegraph/interfaces/http/rest/middleware"
	"recipegraph/pkg/auth"
	pkgerrors "recipegraph/pkg/errors"
	"recipegraph/pkg/observability"
)

// RouterOptions carries the optional cross-cutting pieces of the router.
type RouterOptions struct {
	AllowedOrigins []string
	EnableCORS     bool
	Collector      *observability.Collector // nil disables /metrics
	Tracer         *observability.Tracer    // nil disables X-Ray segments
}

// Router creates and configures the HTTP router
type Router struct {
	nodes   *handlers.NodeHandler
	edges   *handlers.EdgeHandler
	search  *handlers.SearchHandler
	health  *handlers.HealthHandler
	authn   *middleware.Authenticator
	limiter *auth.KeyedLimiter
	errors  *pkgerrors.ErrorHandler
	opts    RouterOptions
	logger  *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	nodes *handlers.NodeHandler,
	edges *handlers.EdgeHandler,
	search *handlers.SearchHandler,
	health *handlers.HealthHandler,
	authn *middleware.Authenticator,
	limiter *auth.KeyedLimiter,
	errorHandler *pkgerrors.ErrorHandler,
	opts RouterOptions,
	logger *zap.Logger,
) *Router {
	return &Router{
		nodes:   nodes,
		edges:   edges,
		search:  search,
		health:  health,
		authn:   authn,
		limiter: limiter,
		errors:  errorHandler,
		opts:    opts,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	if rt.opts.Tracer != nil {
		router.Use(rt.opts.Tracer.Middleware)
	}
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)

	var observer middleware.HTTPObserver
	if rt.opts.Collector != nil {
		observer = rt.opts.Collector
	}
	router.Use(middleware.Logger(rt.logger, observer))

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-Match", "X-Request-ID"},
			ExposedHeaders:   []string{"ETag", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.Handle(w, r, pkgerrors.NewNotFoundError("route", r.URL.Path))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		err := pkgerrors.NewValidationError("method " + r.Method + " not allowed on " + r.URL.Path)
		err.HTTPStatus = http.StatusMethodNotAllowed
		rt.errors.Handle(w, r, err)
	})

	router.Get("/health", rt.health.Health)
	if rt.opts.Collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", rt.health.Health)

		// Reads stay open.
		r.Get("/nodes", rt.nodes.ListNodes)
		r.Get("/nodes/{nodeID}", rt.nodes.GetNode)
		r.Get("/nodes/{nodeID}/history", rt.nodes.History)
		r.Get("/nodes/{nodeID}/traverse", rt.nodes.Traverse)
		r.Get("/edges", rt.edges.ListEdges)
		r.Get("/search", rt.search.Search)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(rt.limiter, rt.errors))
			r.Use(rt.authn.Authenticate)

			r.Post("/nodes", rt.nodes.CreateNode)
			r.Patch("/nodes/{nodeID}", rt.nodes.UpdateNode)
			r.Delete("/nodes/{nodeID}", rt.nodes.DeleteNode)
			r.Post("/edges", rt.edges.CreateEdge)
			r.Delete("/edges/{edgeID}", rt.edges.DeleteEdge)

			r.With(rt.authn.RequireRole(auth.RoleAdmin)).Delete("/admin/nodes/{nodeID}", rt.nodes.PurgeNode)
		})
	})

	return router
}
