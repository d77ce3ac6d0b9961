// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev tenant (acme) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/disruption-hub/chat-auth/internal/config"
	"github.com/disruption-hub/chat-auth/internal/db"
)

const (
	devTenantSubdomain = "acme"
	devTenantDomain    = "acme.example.com"
	devUserEmail       = "dev@example.com"
	devUserPhone       = "+12345678900"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seed: database open: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var existing string
	err = conn.QueryRowContext(ctx,
		`SELECT id FROM tenants WHERE subdomain = $1`, devTenantSubdomain).Scan(&existing)
	if err == nil {
		log.Printf("seed: tenant %q already exists (%s), nothing to do", devTenantSubdomain, existing)
		return
	}

	tenantID := cfg.DefaultTenantID
	if tenantID == "" {
		tenantID = uuid.NewString()
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("seed: begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tenants (id, name, subdomain, domain) VALUES ($1, $2, $3, $4)`,
		tenantID, "Acme Inc", devTenantSubdomain, devTenantDomain); err != nil {
		log.Fatalf("seed: insert tenant: %v", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO app_users
		 (id, tenant_id, email, phone, phone_normalized, display_name,
		  approval_status, status, chatbot_access_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4, $5, 'approved', 'active', 'approved', $6, $6)`,
		uuid.NewString(), tenantID, devUserEmail, devUserPhone, "Dev User", now); err != nil {
		log.Fatalf("seed: insert app user: %v", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO app_users
		 (id, tenant_id, email, display_name,
		  approval_status, status, chatbot_access_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'pending', 'active', 'pending', $5, $5)`,
		uuid.NewString(), tenantID, "pending@example.com", "Pending User", now); err != nil {
		log.Fatalf("seed: insert pending user: %v", err)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("seed: commit: %v", err)
	}

	log.Printf("seed: created tenant %s with dev users %s (approved) and pending@example.com", tenantID, devUserEmail)
}
