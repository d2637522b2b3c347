package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"member-vault/internal/identity"
	jwttoken "member-vault/internal/jwt_token"
	"member-vault/internal/platform/config"
	"member-vault/internal/platform/httpserver"
	"member-vault/internal/platform/logger"
	"member-vault/internal/platform/metrics"
	platformredis "member-vault/internal/platform/redis"
	"member-vault/internal/profile"
	"member-vault/internal/record"
	"member-vault/internal/secured"
	httptransport "member-vault/internal/transport/http"
	"member-vault/pkg/platform/audit"
)

// kindConfigs declares the owned entity kinds the service fronts, each one
// an instance of the same generic controller.
var kindConfigs = []struct {
	cfg  secured.Config
	path string
}{
	{
		cfg:  secured.Config{TargetKind: "person", ProfileRelation: "person"},
		path: "people",
	},
	{
		cfg:  secured.Config{TargetKind: "identity-document", ProfileRelation: "identityDocument"},
		path: "identity-documents",
	},
	{
		cfg: secured.Config{
			TargetKind:      "emergency-contact",
			OwnerHasMany:    true,
			ProfileRelation: "emergencyContacts",
			AllowDelete:     true,
		},
		path: "emergency-contacts",
	},
}

// main wires dependencies and runs the HTTP server and the audit worker
// until a shutdown signal arrives.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configs := make([]secured.Config, 0, len(kindConfigs))
	for _, kc := range kindConfigs {
		configs = append(configs, kc.cfg)
	}
	schema := secured.BuildSchema(identity.KindUser, configs...)

	checks := map[string]httptransport.HealthCheck{}

	var store record.Store
	var auditStore audit.Store
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}

		pgStore := record.NewPostgres(db, schema)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("ensure records schema", "error", err)
			os.Exit(1)
		}
		pgAudit := audit.NewPostgresStore(db)
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			log.Error("ensure audit schema", "error", err)
			os.Exit(1)
		}
		store, auditStore = pgStore, pgAudit
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
		log.Info("using postgres record store")
	} else {
		store = record.NewMemory(schema)
		auditStore = audit.NewInMemoryStore()
		log.Warn("POSTGRES_URL not set, using in-memory record store")
	}

	var cache profile.Cache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache = profile.NewRedisCache(redisClient.Client, log)
		checks["redis"] = redisClient.Health
		log.Info("profile id cache enabled")
	}

	m := metrics.New()
	inbox := make(chan audit.Event, cfg.AuditBuffer)
	recorder := audit.NewRecorder(inbox)
	worker := audit.NewWorker(auditStore, inbox, log)

	directory := identity.NewStoreDirectory(store)
	provisioner := profile.NewProvisioner(store, cache, recorder, m, log)
	jwtService := jwttoken.NewService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	handlers := make([]httptransport.Registrar, 0, len(kindConfigs))
	for _, kc := range kindConfigs {
		service := secured.NewService(kc.cfg, store, directory, provisioner, nil, recorder, m, log)
		handlers = append(handlers, secured.NewHandler(service, kc.cfg, kc.path, log))
	}

	router := httptransport.NewRouter(log, m, jwtService, checks, handlers...)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting member-vault", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
