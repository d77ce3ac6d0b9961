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

	"go.uber.org/zap"

	accessrepo "github.com/disruption-hub/chat-auth/internal/access/repository"
	identityrepo "github.com/disruption-hub/chat-auth/internal/identity/repository"
	otprepo "github.com/disruption-hub/chat-auth/internal/otp/repository"
	sessionrepo "github.com/disruption-hub/chat-auth/internal/session/repository"
	tenantrepo "github.com/disruption-hub/chat-auth/internal/tenant/repository"

	"github.com/disruption-hub/chat-auth/internal/access"
	accountrepo "github.com/disruption-hub/chat-auth/internal/account/repository"
	"github.com/disruption-hub/chat-auth/internal/auth/service"
	"github.com/disruption-hub/chat-auth/internal/config"
	"github.com/disruption-hub/chat-auth/internal/db"
	httptransport "github.com/disruption-hub/chat-auth/internal/http"
	"github.com/disruption-hub/chat-auth/internal/http/handler"
	"github.com/disruption-hub/chat-auth/internal/security"
	"github.com/disruption-hub/chat-auth/internal/sms"
	"github.com/disruption-hub/chat-auth/internal/telemetry"
	"github.com/disruption-hub/chat-auth/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DefaultTenantID == "" {
		log.Fatalf("config: DEFAULT_TENANT_ID must be set (run cmd/seed to create a tenant)")
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx := context.Background()

	providers, err := telemetry.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		logger.Fatal("telemetry", zap.Error(err))
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database open", zap.Error(err))
	}
	defer conn.Close()

	if err := db.WaitReady(ctx, conn, cfg.ReadyTimeout()); err != nil {
		logger.Fatal("database not ready", zap.Error(err))
	}

	identities := identityrepo.NewPostgresRepository(conn)
	codes := otprepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	accounts := accountrepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)

	resolver := tenant.NewResolver(tenants, cfg.DefaultTenantID)
	linker := access.NewLinker(accounts, accessrepo.NewPostgresLinkStore(conn))

	registry := sms.NewRegistry(cfg.DefaultChannel)
	registry.Register("sms", sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender))

	authService := service.NewAuthService(
		identities, codes, sessions,
		resolver, linker, registry,
		security.NewHasher(cfg.BcryptCost),
	)

	router := httptransport.NewRouter(cfg.ServiceName, handler.NewAuthHandler(authService), conn.PingContext)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", zap.Error(err))
	}
	logger.Info("http server stopped")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
