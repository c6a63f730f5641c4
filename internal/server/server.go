// Package server is the HTTP surface of the prediction service.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthpredict/internal/logger"
	"github.com/Skufu/healthpredict/internal/service"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type PDFRenderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

type Options struct {
	Service *service.Service
	// DB is nil when history is disabled.
	DB             HealthChecker
	PDF            PDFRenderer
	Metrics        http.Handler
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

func NewRouter(opts Options) *gin.Engine {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	h := &handlers{svc: opts.Service, pdf: opts.PDF}

	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders: []string{"Content-Disposition"},
			MaxAge:        12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readyz(opts.DB))
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := router.Group("/api")
	api.GET("/models", h.listModels)
	api.GET("/predictions", h.history)

	small := limitBodySize(opts.MaxBodyBytes)
	api.POST("/models/:model/predict", small, h.predict)
	api.POST("/models/:model/report", small, h.report)
	api.POST("/models/:model/batch", limitBodySize(opts.MaxUploadBytes), h.batch)

	return router
}

func readyz(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     "unhealthy: " + err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// NewHTTPServer applies the read timeouts; writeTimeout must cover the
// slowest handler (PDF rendering).
func NewHTTPServer(addr string, handler http.Handler, writeTimeout time.Duration) *http.Server {
	if writeTimeout <= 0 {
		writeTimeout = 15 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then drains the server.
func WaitForShutdown(server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Infof("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}
