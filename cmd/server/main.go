package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthpredict/internal/config"
	"github.com/Skufu/healthpredict/internal/events"
	"github.com/Skufu/healthpredict/internal/logger"
	"github.com/Skufu/healthpredict/internal/metrics"
	"github.com/Skufu/healthpredict/internal/predictor"
	"github.com/Skufu/healthpredict/internal/report"
	"github.com/Skufu/healthpredict/internal/server"
	"github.com/Skufu/healthpredict/internal/service"
	"github.com/Skufu/healthpredict/internal/store"
	"github.com/Skufu/healthpredict/internal/store/postgres"
	"github.com/Skufu/healthpredict/internal/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	logger.SetLevel(cfg.LogLevel)

	models, err := config.LoadModels(cfg.ModelsConfig)
	if err != nil {
		log.Fatalf("models config error: %v", err)
	}
	registry, err := predictor.NewRegistry(models, predictor.LoadForest)
	if err != nil {
		log.Fatalf("model load failed: %v", err)
	}

	ctx := context.Background()
	m := metrics.New()
	opts := []service.Option{service.WithMetrics(m)}

	var db server.HealthChecker
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if st != nil {
		defer st.Close()
		db = st
		opts = append(opts, service.WithStore(st))

		if len(cfg.KafkaBrokers) > 0 {
			pub := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
			defer pub.Close()
			opts = append(opts, service.WithPublisher(pub))
			logger.Infof("publishing predictions to %s on %v", cfg.KafkaTopic, cfg.KafkaBrokers)
		}
	}

	var pdfOpts []report.PDFOption
	if cfg.ChromePath != "" {
		pdfOpts = append(pdfOpts, report.WithBrowserPath(cfg.ChromePath))
	}
	pdf := report.NewPDFRenderer(cfg.PDFTimeout, pdfOpts...)
	if err := pdf.Available(); err != nil {
		logger.Warnf("PDF reports disabled until a browser is available: %v", err)
	}

	router := server.NewRouter(server.Options{
		Service:        service.New(registry, opts...),
		DB:             db,
		PDF:            pdf,
		Metrics:        m.Handler(),
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	srv := server.NewHTTPServer(":"+cfg.Port, router, cfg.PDFTimeout+10*time.Second)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	logger.Infof("server listening on :%s", cfg.Port)
	server.WaitForShutdown(srv)
}

// openStore returns nil when history is disabled.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if !cfg.EnableDB {
		return nil, nil
	}
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
