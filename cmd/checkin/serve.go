package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/couple-checkin/internal/auth"
	"github.com/tbourn/couple-checkin/internal/events"
	httpapi "github.com/tbourn/couple-checkin/internal/http"
	"github.com/tbourn/couple-checkin/internal/notify"
	"github.com/tbourn/couple-checkin/internal/observability"
	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/services"
	"github.com/tbourn/couple-checkin/internal/storage"
)

// janitorEvery is how often expired idempotency records are purged.
const janitorEvery = time.Hour

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Error().Err(err).Msg("shutdown otel")
		}
	}()

	db, err := openDB(ctx, a)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()
	if cfg.OTEL.Enabled {
		if err := repo.UseTracing(db); err != nil {
			return err
		}
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	adapters := httpapi.Adapters{
		DB:     db,
		Tokens: issuer,
		Events: events.Noop{},
		Mailer: notify.LogMailer{Logger: log.Logger},
		Quotes: &services.QuoteService{DB: db},
	}
	if cfg.NATS.URL != "" {
		bus, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			return err
		}
		defer bus.Close()
		adapters.Events = bus
		adapters.Mailer = notify.EventMailer{Events: bus}
		log.Info().Str("prefix", cfg.NATS.SubjectPrefix).Msg("event bus connected")
	}
	if cfg.S3.Endpoint != "" {
		store, err := storage.NewS3(ctx, storage.Options{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			PresignTTL:     cfg.S3.PresignTTL,
		})
		if err != nil {
			return err
		}
		adapters.Audio = store
	}
	if err := adapters.Quotes.Reindex(ctx); err != nil {
		log.Warn().Err(err).Msg("build quote index")
	}

	go runJanitor(ctx, db, janitorEvery)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, adapters, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting couple-checkin api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("shutdown server")
	}
	log.Info().Msg("server stopped")
	return nil
}

// openDB connects to the configured database and brings the schema up to date.
func openDB(ctx context.Context, a *app) (*gorm.DB, error) {
	target := a.cfg.DBPath
	if a.cfg.DBDriver == repo.DriverPostgres {
		target = a.cfg.DatabaseURL
	}
	db, err := repo.Open(ctx, a.cfg.DBDriver, target)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx, db, a.cfg.DBDriver); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	return db, nil
}

// runJanitor purges expired idempotency records every interval until ctx ends.
func runJanitor(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.DeleteExpiredIdempotency(ctx, db, now.UTC())
			if err != nil {
				log.Warn().Err(err).Msg("purge idempotency records")
				continue
			}
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("purged idempotency records")
			}
		}
	}
}
