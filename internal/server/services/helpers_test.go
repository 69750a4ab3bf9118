package services

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/trainerauth/internal/logging"
	"github.com/dmitrijs2005/trainerauth/internal/server/auth"
	"github.com/dmitrijs2005/trainerauth/internal/server/lockout"
	"github.com/dmitrijs2005/trainerauth/internal/server/models"
	"github.com/dmitrijs2005/trainerauth/internal/server/repositories/accounts"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingHasher struct {
	auth.Hasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(plain, digest string) bool {
	h.verifies.Add(1)
	return h.Hasher.Verify(plain, digest)
}

type recorded struct {
	accountID string
	kind      models.AuditKind
	origin    models.Origin
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *fakeRecorder) Record(_ context.Context, acc *models.Account, kind models.AuditKind, origin models.Origin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recorded{accountID: acc.ID, kind: kind, origin: origin})
}

func (r *fakeRecorder) count(kind models.AuditKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.kind == kind {
			n++
		}
	}
	return n
}

type captureNotifier struct {
	mu    sync.Mutex
	sent  int
	to    string
	links []string
	err   error
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, to, _ string, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	n.to = to
	n.links = append(n.links, link)
	return n.err
}

func (n *captureNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.links)
	u, err := url.Parse(n.links[len(n.links)-1])
	require.NoError(t, err)
	return u.Query().Get("token")
}

type env struct {
	repo     accounts.Repository
	hasher   *countingHasher
	clock    *fakeClock
	issuer   *auth.SessionIssuer
	audit    *fakeRecorder
	notifier *captureNotifier
	accounts *AccountService
	reset    *ResetService
}

var origin = models.Origin{IPAddress: "203.0.113.7", UserAgent: "test-agent"}

func newEnvWithRepo(t *testing.T, repo accounts.Repository) *env {
	t.Helper()

	e := &env{
		repo:     repo,
		hasher:   &countingHasher{Hasher: auth.NewBcryptHasher(bcrypt.MinCost)},
		clock:    &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
		audit:    &fakeRecorder{},
		notifier: &captureNotifier{},
	}
	e.issuer = auth.NewSessionIssuer([]byte("test-secret"), 0, e.clock.Now)

	e.accounts = NewAccountService(repo, e.hasher, lockout.NewPolicy(), e.issuer, e.audit, logging.Discard())
	e.accounts.now = e.clock.Now

	e.reset = NewResetService(repo, e.hasher, e.audit, e.notifier, logging.Discard(), 0, "http://localhost:3000/reset-password")
	e.reset.now = e.clock.Now

	return e
}

func newEnv(t *testing.T) *env {
	return newEnvWithRepo(t, accounts.NewMemoryRepository())
}

func (e *env) register(t *testing.T) *AuthResult {
	t.Helper()
	res, err := e.accounts.Register(context.Background(), "trainer1", "t1@example.com", "abcd1234")
	require.NoError(t, err)
	return res
}

func (e *env) account(t *testing.T) *models.Account {
	t.Helper()
	acc, err := e.repo.GetByUsername(context.Background(), "trainer1")
	require.NoError(t, err)
	return acc
}
