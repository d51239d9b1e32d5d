// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as correlation IDs, logging/redaction, error dispatch, panic recovery,
// metrics, compression, CORS, security headers, and rate limiting.
//
// Design goals:
//   - Every failure leaves through one place (middleware.ErrorHandler)
//   - Safe-by-default middleware ordering (RequestID → logging → errors → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/tbourn/go-widget-api/internal/config"
	"github.com/tbourn/go-widget-api/internal/docs"
	"github.com/tbourn/go-widget-api/internal/domain"
	"github.com/tbourn/go-widget-api/internal/http/handlers"
	"github.com/tbourn/go-widget-api/internal/http/middleware"
	"github.com/tbourn/go-widget-api/internal/repo"
	"github.com/tbourn/go-widget-api/internal/services"
)

// widgetRepoShim adapts the repository free functions to services.WidgetRepo.
type widgetRepoShim struct{}

func (widgetRepoShim) CreateWidget(ctx context.Context, db *gorm.DB, name string, price float64, stock int) (*domain.Widget, error) {
	return repo.CreateWidget(ctx, db, name, price, stock)
}

func (widgetRepoShim) CountWidgets(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountWidgets(ctx, db)
}

func (widgetRepoShim) ListWidgetsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Widget, error) {
	return repo.ListWidgetsPage(ctx, db, offset, limit)
}

func (widgetRepoShim) GetWidget(ctx context.Context, db *gorm.DB, id string) (*domain.Widget, error) {
	return repo.GetWidget(ctx, db, id)
}

func (widgetRepoShim) UpdateWidget(ctx context.Context, db *gorm.DB, id string, fields map[string]any) (*domain.Widget, error) {
	return repo.UpdateWidget(ctx, db, id, fields)
}

func (widgetRepoShim) DeleteWidget(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteWidget(ctx, db, id)
}

// accountRepoShim adapts the repository free functions to services.AccountRepo.
type accountRepoShim struct{}

func (accountRepoShim) CreateAccount(ctx context.Context, db *gorm.DB, name, email string, age int) (*domain.Account, error) {
	return repo.CreateAccount(ctx, db, name, email, age)
}

func (accountRepoShim) CountAccounts(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountAccounts(ctx, db)
}

func (accountRepoShim) ListAccountsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Account, error) {
	return repo.ListAccountsPage(ctx, db, offset, limit)
}

func (accountRepoShim) GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	return repo.GetAccount(ctx, db, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine, then mounts the versioned public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. RequestID: generate/propagate correlation id
//  2. Access logging: Logger in development, RedactingLogger otherwise
//  3. Metrics: outside the error handler so dispatched statuses are counted
//  4. Gzip: outside the error handler so error bodies are encoded consistently
//  5. ErrorHandler: renders whatever failure the inner chain recorded
//  6. Recovery: panics from middleware not wrapped by handlers.Catch
//  7. Body size limiter
//  8. CORS and Security headers (set before any early abort)
//  9. Rate limiter (per user/IP)
//
// Routes are registered before the NoRoute/NoMethod fallbacks take effect;
// gin consults the fallbacks only after every route failed to match.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 2) Structured access logging; redact PII outside development
	if cfg.Verbose() {
		r.Use(middleware.Logger())
	} else {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	}

	// 3) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 4) Response compression (skips clients without Accept-Encoding: gzip)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 5) Single exit for failures
	r.Use(middleware.ErrorHandler(middleware.ErrorOptions{Verbose: cfg.Verbose()}))

	// 6) Panic recovery into the dispatcher
	r.Use(middleware.Recovery())

	// 7) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 8) CORS posture and security headers
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		BrowserPolicy: true,
	}))

	// 9) Token-bucket rate limiter per API key or client IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByAPIKeyOrIP())
	r.Use(rl.Handler())

	// Fallbacks
	r.NoRoute(handlers.Catch(handlers.NotFound))
	r.NoMethod(handlers.Catch(handlers.MethodNotAllowed))

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	widgetSvc := services.NewWidgetService(db, widgetRepoShim{})
	accountSvc := services.NewAccountService(db, accountRepoShim{})
	stats := func(ctx context.Context) (int64, *time.Time, error) {
		return repo.WidgetsStats(ctx, db)
	}
	h := handlers.New(widgetSvc, accountSvc, stats)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Widgets
		api.POST("/widgets", handlers.Catch(h.CreateWidget))
		api.GET("/widgets", handlers.Catch(h.ListWidgets))
		api.GET("/widgets/:id", handlers.Catch(h.GetWidget))
		api.PATCH("/widgets/:id", handlers.Catch(h.UpdateWidget))
		api.DELETE("/widgets/:id", handlers.Catch(h.DeleteWidget))

		// Accounts
		api.POST("/accounts", handlers.Catch(h.CreateAccount))
		api.GET("/accounts", handlers.Catch(h.ListAccounts))
		api.GET("/accounts/:id", handlers.Catch(h.GetAccount))
	}
}

// corsMiddleware returns the CORS chain. With no configured origins every
// origin is allowed (credentials off); otherwise only allowlisted origins
// are echoed back.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
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

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
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
