// Package tenant resolves opaque tenant hints (an id, a subdomain, or a
// hostname) to a canonical tenant id.
package tenant

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/disruption-hub/chat-auth/internal/tenant/repository"
)

// Resolver maps tenant hints to tenant ids.
type Resolver struct {
	repo repository.Repository
	// DefaultTenantID is returned when the hint is empty or matches nothing
	// and does not look like a tenant id.
	defaultTenantID string
}

// NewResolver returns a Resolver backed by repo, falling back to
// defaultTenantID for unresolvable hints.
func NewResolver(repo repository.Repository, defaultTenantID string) *Resolver {
	return &Resolver{repo: repo, defaultTenantID: defaultTenantID}
}

// Resolve returns the canonical tenant id for hint. Resolution order: exact
// id match, subdomain match, then domain/host match after stripping scheme,
// port, and a leading "www.". A hint shaped like a tenant id that matches no
// row is trusted as-is; anything else falls back to the default tenant.
func (r *Resolver) Resolve(ctx context.Context, hint string) (string, error) {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return r.defaultTenantID, nil
	}

	// tenants.id is a uuid column; querying it with an arbitrary hint would
	// fail to bind, so only id-shaped hints are looked up by id.
	if looksLikeTenantID(hint) {
		if t, err := r.repo.GetByID(ctx, hint); err != nil {
			return "", err
		} else if t != nil {
			return t.ID, nil
		}
	}

	if t, err := r.repo.GetBySubdomain(ctx, hint); err != nil {
		return "", err
	} else if t != nil {
		return t.ID, nil
	}

	host := CleanHost(hint)
	if host != "" && host != hint {
		if t, err := r.repo.GetBySubdomain(ctx, host); err != nil {
			return "", err
		} else if t != nil {
			return t.ID, nil
		}
	}
	if host != "" {
		if t, err := r.repo.GetByDomain(ctx, host); err != nil {
			return "", err
		} else if t != nil {
			return t.ID, nil
		}
		// A host like acme.example.com routes by its first label.
		if label, _, ok := strings.Cut(host, "."); ok && label != "" {
			if t, err := r.repo.GetBySubdomain(ctx, label); err != nil {
				return "", err
			} else if t != nil {
				return t.ID, nil
			}
		}
	}

	if looksLikeTenantID(hint) {
		return hint, nil
	}
	zap.L().Debug("tenant hint unresolved, using default",
		zap.String("hint", hint), zap.String("tenant_id", r.defaultTenantID))
	return r.defaultTenantID, nil
}

// CleanHost strips scheme, port, path, and a leading "www." from a hint so
// "https://www.acme.example.com:8443/x" becomes "acme.example.com".
func CleanHost(hint string) string {
	host := hint
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i+1:], ".") {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")
	return host
}

func looksLikeTenantID(hint string) bool {
	_, err := uuid.Parse(hint)
	return err == nil
}
