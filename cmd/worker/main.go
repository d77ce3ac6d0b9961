// Worker periodically removes expired one-time codes and dead sessions.
// Set CLEANUP_INTERVAL (default 1h) and SESSION_RETENTION (default 720h)
// to tune how often it runs and how long expired rows are kept.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disruption-hub/chat-auth/internal/config"
	"github.com/disruption-hub/chat-auth/internal/db"
	otprepo "github.com/disruption-hub/chat-auth/internal/otp/repository"
	sessionrepo "github.com/disruption-hub/chat-auth/internal/session/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	interval := durationEnv("CLEANUP_INTERVAL", time.Hour)
	retention := durationEnv("SESSION_RETENTION", 720*time.Hour)

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("worker: database open: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("worker: shutting down...")
		cancel()
	}()

	if err := db.WaitReady(ctx, conn, cfg.ReadyTimeout()); err != nil {
		log.Fatalf("worker: database not ready: %v", err)
	}

	codes := otprepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)

	log.Printf("worker: cleaning every %s, session retention %s", interval, retention)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runCleanup(ctx, codes, sessions, retention)
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
		}
	}
}

func runCleanup(ctx context.Context, codes *otprepo.PostgresRepository, sessions *sessionrepo.PostgresRepository, retention time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	now := time.Now().UTC()
	if n, err := codes.DeleteExpiredBefore(runCtx, now); err != nil {
		log.Printf("worker: code cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("worker: removed %d expired one-time codes", n)
	}

	if n, err := sessions.DeleteExpiredBefore(runCtx, now.Add(-retention)); err != nil {
		log.Printf("worker: session cleanup failed: %v", err)
	} else if n > 0 {
		log.Printf("worker: removed %d dead sessions", n)
	}
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("worker: invalid %s %q: %v", key, v, err)
	}
	return d
}
