package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/api/internal/app"
	"taskboard/api/internal/blob"
	"taskboard/api/internal/config"
	"taskboard/api/internal/email"
	"taskboard/api/internal/search"
	"taskboard/api/internal/session"
	"taskboard/api/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	// Refresh tokens go to Redis when configured, Postgres otherwise.
	var sessions *session.RedisStore
	if cfg.RedisURL != "" {
		sessions, err = session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer sessions.Close()
		log.Printf("sessions: redis at %s", cfg.RedisURL)
	} else {
		log.Printf("sessions: postgres fallback (REDIS_URL not set)")
	}

	var searchSvc *search.Service
	if cfg.MeiliURL != "" {
		meili := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey)
		searchSvc = search.NewService(meili, search.NewPgFTS(db))
		searchSvc.ReindexAllFromPG(context.Background())
		defer meili.Close()
	} else {
		searchSvc = search.NewService(nil, search.NewPgFTS(db))
	}

	emailSvc := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if emailSvc.IsConfigured() {
		log.Printf("email: smtp via %s:%s", cfg.SMTPHost, cfg.SMTPPort)
	} else {
		log.Printf("email: not configured, notifications disabled")
	}

	var blobStore *blob.Store
	if cfg.MinioEndpoint != "" {
		blobStore, err = blob.New(blob.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			log.Fatalf("minio: %v", err)
		}
		log.Printf("attachments: minio at %s, bucket %s", cfg.MinioEndpoint, cfg.MinioBucket)
	} else {
		log.Printf("attachments: minio not configured, file uploads disabled")
	}

	var sessionStore app.SessionStore
	if sessions != nil {
		sessionStore = sessions
	}

	service := app.New(cfg, dataStore, sessionStore, searchSvc, emailSvc, blobStore)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.NewHTTPServer(service, cfg.CORSOrigin).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Printf("api: listening on %s", cfg.Addr)
		errs <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api: %v", err)
		}
	case sig := <-stop:
		log.Printf("api: received %s, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("api: shutdown: %v", err)
		}
	}
}
