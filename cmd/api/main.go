package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/delonixservices/crm/internal/adapters/assets"
	"github.com/delonixservices/crm/internal/adapters/crmapi"
	server "github.com/delonixservices/crm/internal/adapters/http_server"
	"github.com/delonixservices/crm/internal/adapters/observability"
	redisad "github.com/delonixservices/crm/internal/adapters/redis"
	"github.com/delonixservices/crm/internal/adapters/unsplash"
	"github.com/delonixservices/crm/internal/app"
	"github.com/delonixservices/crm/internal/domain"
	"github.com/delonixservices/crm/internal/pdf"
	"github.com/delonixservices/crm/internal/session"
	"github.com/delonixservices/crm/internal/shared"
	mysqlrepo "github.com/delonixservices/crm/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	observability.Serve(cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ledger db is optional; without it documents and dispatches are not recorded
	var ledger domain.Ledger
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		ledger = mysqlrepo.New(db)
	}

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; catalog lookups go straight to the backend")
	}

	// backend session
	sess := session.New()
	defer sess.Clear()
	backend, err := crmapi.New(cfg.CRMBaseURL, sess, cfg.CRMRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend client")
	}
	switch {
	case cfg.CRMToken != "":
		sess.Start(cfg.CRMToken, cfg.CRMUser)
	case cfg.CRMUser != "":
		tok, err := backend.Login(ctx, cfg.CRMUser, cfg.CRMPassword)
		if err != nil {
			log.Fatal().Err(err).Str("user", cfg.CRMUser).Msg("backend login failed")
		}
		sess.Start(tok, cfg.CRMUser)
		log.Info().Str("user", cfg.CRMUser).Msg("backend session started")
	}

	// deps
	photos := app.NewCachedPhotos(unsplash.New(cfg.UnsplashBase, cfg.UnsplashKey), cache, cfg.CacheTTL)
	images := assets.New(cfg.ImageTimeout, assets.DefaultScale, cfg.Brand.LogoPath, cfg.Brand.QRPath)
	pipeline := pdf.NewPipeline(photos, images, pdf.Brand{
		LogoPath:     cfg.Brand.LogoPath,
		QRPath:       cfg.Brand.QRPath,
		Website:      cfg.Brand.Website,
		PaymentLines: cfg.Brand.PaymentLines,
	})

	catalog := app.NewCatalogService(backend, cache, cfg.CacheTTL, cfg.Workers)
	handlers := &server.Handlers{
		Catalog:     catalog,
		Itineraries: app.NewItineraryService(backend, catalog),
		Proposals:   app.NewProposalService(backend, pipeline, backend, ledger, photos),
		Leads:       app.NewLeadService(backend),
	}

	// http
	srv := server.New(cfg.RequestTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(handlers)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
