// Package httpapi: HTTP API управления задачами синхронизации (gin).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

const defaultRateLimitPerMinute = 30

// JobControl: операции, доступные через API.
type JobControl interface {
	ListJobs(ctx context.Context, page, limit int) (domain.Page[domain.CronJob], error)
	ToggleJob(ctx context.Context, name string, enabled bool) (string, error)
	TriggerJob(ctx context.Context, name string) (string, error)
	SyncNextXDays(ctx context.Context, days int) (string, error)
}

// CatalogQuery: чтение синхронизированного инвентаря продуктов.
type CatalogQuery interface {
	ProductDates(ctx context.Context, productID int64) (domain.ProductDates, error)
	ProductSlots(ctx context.Context, productID int64, date string) (domain.ProductSlots, error)
}

// Config: параметры роутера.
type Config struct {
	// Catalog включает маршруты /api/v1/products; nil отключает их.
	Catalog CatalogQuery
	// ServiceName используется как имя сервиса в трейсах.
	ServiceName string
	// RateLimitPerMinute: лимит запросов с одного IP; <= 0 означает 30.
	RateLimitPerMinute int
}

// Router: gin engine с ограничителем частоты запросов.
type Router struct {
	engine  *gin.Engine
	limiter *ipRateLimiter
}

// NewRouter собирает маршруты /api/v1/admin/cron и, если задан Catalog, /api/v1/products.
func NewRouter(control JobControl, cfg Config, logger *log.Entry) *Router {
	if logger == nil {
		logger = log.WithField("component", "admin-http")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "inventory-sync"
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = defaultRateLimitPerMinute
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	limiter := newIPRateLimiter(cfg.RateLimitPerMinute)

	engine.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		requestLogger(logger),
		limiter.middleware(),
	)

	h := &handler{control: control, catalog: cfg.Catalog, logger: logger}
	v1 := engine.Group("/api/v1")
	cron := v1.Group("/admin/cron")
	cron.GET("", h.listJobs)
	cron.PUT("/toggle", h.toggleJob)
	cron.GET("/trigger", h.triggerJob)
	cron.GET("/sync", h.syncNextXDays)
	if cfg.Catalog != nil {
		products := v1.Group("/products")
		products.GET("/:productId/dates", h.productDates)
		products.GET("/:productId/slots", h.productSlots)
	}

	engine.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "route not found")
	})

	return &Router{engine: engine, limiter: limiter}
}

// ServeHTTP реализует http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

// Close останавливает фоновую очистку лимитера.
func (r *Router) Close() {
	r.limiter.stop()
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"client":   c.ClientIP(),
			"duration": time.Since(started).String(),
		}).Debug("http request")
	}
}
