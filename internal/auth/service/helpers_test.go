package service

import (
	"context"
	"sort"
	"sync"
	"time"

	accountdomain "github.com/disruption-hub/chat-auth/internal/account/domain"
	identitydomain "github.com/disruption-hub/chat-auth/internal/identity/domain"
	otpdomain "github.com/disruption-hub/chat-auth/internal/otp/domain"
	otprepo "github.com/disruption-hub/chat-auth/internal/otp/repository"
	"github.com/disruption-hub/chat-auth/internal/security"
	sessiondomain "github.com/disruption-hub/chat-auth/internal/session/domain"
)

type memIdentityRepo struct {
	mu    sync.Mutex
	items map[string]*identitydomain.PhoneIdentity
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{items: make(map[string]*identitydomain.PhoneIdentity)}
}

func (r *memIdentityRepo) GetByID(_ context.Context, id string) (*identitydomain.PhoneIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *i
	return &cp, nil
}

func (r *memIdentityRepo) GetByNormalizedPhone(_ context.Context, tenantID, phoneNormalized string) (*identitydomain.PhoneIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		if i.TenantID == tenantID && i.PhoneNormalized == phoneNormalized {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) Upsert(_ context.Context, in *identitydomain.PhoneIdentity) (*identitydomain.PhoneIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.items {
		if i.TenantID == in.TenantID && i.PhoneNormalized == in.PhoneNormalized {
			i.PhoneRaw = in.PhoneRaw
			i.LastActiveAt = in.LastActiveAt
			i.UpdatedAt = in.UpdatedAt
			cp := *i
			return &cp, nil
		}
	}
	cp := *in
	r.items[in.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memIdentityRepo) TouchLastActive(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.items[id]; ok {
		i.LastActiveAt = at
		i.UpdatedAt = at
	}
	return nil
}

type memCodeRepo struct {
	mu       sync.Mutex
	items    map[string]*otpdomain.OneTimeCode
	sessions *memSessionRepo
}

func newMemCodeRepo(sessions *memSessionRepo) *memCodeRepo {
	return &memCodeRepo{items: make(map[string]*otpdomain.OneTimeCode), sessions: sessions}
}

func (r *memCodeRepo) Create(_ context.Context, c *otpdomain.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.items[c.ID] = &cp
	return nil
}

func (r *memCodeRepo) GetByVerificationID(_ context.Context, verificationID string) (*otpdomain.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.VerificationID == verificationID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memCodeRepo) LatestByIdentity(_ context.Context, identityID string) (*otpdomain.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *otpdomain.OneTimeCode
	for _, c := range r.items {
		if c.IdentityID != identityID {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *memCodeRepo) IncrementAttempts(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.items[id]; ok {
		c.AttemptCount++
	}
	return nil
}

func (r *memCodeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *memCodeRepo) Redeem(ctx context.Context, id string, s *sessiondomain.Session) error {
	r.mu.Lock()
	if _, ok := r.items[id]; !ok {
		r.mu.Unlock()
		return otprepo.ErrAlreadyRedeemed
	}
	delete(r.items, id)
	r.mu.Unlock()
	return r.sessions.Create(ctx, s)
}

func (r *memCodeRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, c := range r.items {
		if c.ExpiresAt.Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *memCodeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type memSessionRepo struct {
	mu    sync.Mutex
	items map[string]*sessiondomain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{items: make(map[string]*sessiondomain.Session)}
}

func (r *memSessionRepo) GetByToken(_ context.Context, token string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.Token == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessionRepo) Create(_ context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) PruneBeyond(_ context.Context, identityID string, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var own []*sessiondomain.Session
	for _, s := range r.items {
		if s.IdentityID == identityID {
			own = append(own, s)
		}
	}
	sort.Slice(own, func(i, j int) bool { return own[i].CreatedAt.After(own[j].CreatedAt) })
	for i := keep; i < len(own); i++ {
		delete(r.items, own[i].ID)
	}
	return nil
}

func (r *memSessionRepo) Touch(_ context.Context, id string, lastUsedAt time.Time, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.items[id]; ok {
		t := lastUsedAt
		s.LastUsedAt = &t
		if expiresAt != nil {
			s.ExpiresAt = *expiresAt
		}
	}
	return nil
}

func (r *memSessionRepo) Revoke(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.items[id]; ok && s.RevokedAt == nil {
		t := at
		s.RevokedAt = &t
	}
	return nil
}

func (r *memSessionRepo) RevokeAllByIdentity(_ context.Context, identityID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if s.IdentityID == identityID && s.RevokedAt == nil {
			t := at
			s.RevokedAt = &t
		}
	}
	return nil
}

func (r *memSessionRepo) LatestActive(_ context.Context, identityID string, now time.Time) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *sessiondomain.Session
	for _, s := range r.items {
		if s.IdentityID != identityID || !s.Usable(now) {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *memSessionRepo) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.items {
		if s.ExpiresAt.Before(cutoff) || (s.RevokedAt != nil && s.RevokedAt.Before(cutoff)) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

func (r *memSessionRepo) byIdentity(identityID string) []*sessiondomain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.items {
		if s.IdentityID == identityID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memSessionRepo) get(id string) *sessiondomain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil
	}
	cp := *s
	return &cp
}

// stubResolver resolves every hint to a fixed tenant id.
type stubResolver struct{ tenantID string }

func (s stubResolver) Resolve(context.Context, string) (string, error) { return s.tenantID, nil }

// stubLinker returns a fixed user or error; counts calls so tests can assert
// gate ordering.
type stubLinker struct {
	mu    sync.Mutex
	user  *accountdomain.User
	err   error
	calls int
}

func (l *stubLinker) EnsureAccessApproved(context.Context, *identitydomain.PhoneIdentity) (*accountdomain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.user, nil
}

// recordSender captures outgoing messages and can be set to fail.
type recordSender struct {
	mu       sync.Mutex
	err      error
	messages []string
	dests    []string
}

func (s *recordSender) Send(_ context.Context, _, destination, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.dests = append(s.dests, destination)
	s.messages = append(s.messages, message)
	return nil
}

func (s *recordSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1]
}

type testEnv struct {
	svc        *AuthService
	identities *memIdentityRepo
	codes      *memCodeRepo
	sessions   *memSessionRepo
	linker     *stubLinker
	sender     *recordSender
	now        time.Time
}

const testTenantID = "11111111-1111-1111-1111-111111111111"

func newTestEnv() *testEnv {
	sessions := newMemSessionRepo()
	env := &testEnv{
		identities: newMemIdentityRepo(),
		codes:      newMemCodeRepo(sessions),
		sessions:   sessions,
		linker: &stubLinker{user: &accountdomain.User{
			ID:                  "user-1",
			TenantID:            testTenantID,
			DisplayName:         "Ana",
			Email:               "ana@example.com",
			ApprovalStatus:      accountdomain.ApprovalApproved,
			Status:              accountdomain.StatusActive,
			ChatbotAccessStatus: accountdomain.ChatbotAccessApproved,
		}},
		sender: &recordSender{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = NewAuthService(
		env.identities, env.codes, env.sessions,
		stubResolver{tenantID: testTenantID}, env.linker, env.sender,
		security.NewHasher(4),
	)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) advance(d time.Duration) { e.now = e.now.Add(d) }
