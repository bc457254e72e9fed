// Package httpapi wires the HTTP transport (Gin) to the feed services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/k-kitchen/internal/catalog"
	"github.com/tbourn/k-kitchen/internal/config"
	"github.com/tbourn/k-kitchen/internal/http/handlers"
	"github.com/tbourn/k-kitchen/internal/http/middleware"
	"github.com/tbourn/k-kitchen/internal/live"
	"github.com/tbourn/k-kitchen/internal/services"
)

// Deps are the services the routes are bound to. Analyze, Personas and
// Live are optional.
type Deps struct {
	Feed     *services.FeedService
	Likes    *services.LikeService
	Analyze  *services.AnalyzeService
	Personas *services.PersonaService
	Catalog  *catalog.Catalog
	Live     *live.Hub
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID and UserID: correlation id and caller identity
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// Idempotency and rate limiting are route-scoped. The rate limiter guards
// the endpoints that call paid collaborators.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID(), middleware.UserID())
	r.Use(middleware.Logger(middleware.LogOptions{
		SkipPaths: []string{"/health", "/metrics"},
		MaskQuery: []string{"token", "api_key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(cfg.MaxBodyBytes))
	r.Use(middleware.Metrics())
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var analyze handlers.AnalyzeService
	if deps.Analyze != nil {
		analyze = deps.Analyze
	}
	var personas handlers.PersonaService
	if deps.Personas != nil {
		personas = deps.Personas
	}
	h := handlers.New(deps.Feed, deps.Likes, analyze, personas, deps.Catalog)

	idem := middleware.Idempotency(middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, key string, _ time.Time) (bool, error) {
			return deps.Feed.HasIdempotencyKey(ctx, userID, key)
		},
	)
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Feed
		api.POST("/posts/generate", idem, rl.Handler(), h.GeneratePosts)
		api.POST("/posts", rl.Handler(), h.CreatePost)
		api.GET("/posts", gzip.Gzip(gzip.DefaultCompression), h.ListPosts)
		api.GET("/posts/:id", h.GetPost)
		api.POST("/posts/:id/like", h.LikePost)
		api.POST("/posts/:id/boost", h.BoostPost)
		if deps.Live != nil {
			api.GET("/posts/live", gin.WrapH(deps.Live))
		}

		// Analysis
		api.POST("/analyze", rl.Handler(), h.AnalyzePhoto)

		// Catalog
		api.GET("/personas", h.ListPersonas)
		api.GET("/personas/:id/story", rl.Handler(), h.PersonaStory)
		api.GET("/scenarios", h.ListScenarios)
	}
}

// corsMiddleware allows every origin when none are configured, otherwise
// echoes allow-listed origins.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-User-ID", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Idempotency-Replayed", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		base.AllowAllOrigins = true
		// ACAO: * even without an Origin header (simple health checks).
		return []gin.HandlerFunc{
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(base),
		}
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	base.AllowOrigins = origins
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(base),
	}
}

// AllowOrigin reports whether origin may open a live feed socket under the
// given allow-list. An empty list allows everything.
func AllowOrigin(origins []string) func(string) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(origin string) bool {
		_, ok := allowed[origin]
		return ok
	}
}

// limitBody caps the request body size for all endpoints. Requests exceeding
// the cap fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
