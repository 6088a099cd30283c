package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/application/query"
	"github.com/radake/rada-ke/internal/domain/civic"
	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/internal/interface/http/handlers"
	"github.com/radake/rada-ke/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeCivic struct {
	mu          sync.Mutex
	politicians map[string]*civic.Politician
	votes       []*civic.VotingRecord
}

func newFakeCivic() *fakeCivic {
	return &fakeCivic{politicians: make(map[string]*civic.Politician)}
}

func (f *fakeCivic) CreatePolitician(_ context.Context, p *civic.Politician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.politicians[p.ID] = p
	return nil
}

func (f *fakeCivic) GetPolitician(_ context.Context, id string) (*civic.Politician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.politicians[id]
	if !ok {
		return nil, shared.ErrPoliticianNotFound
	}
	return p, nil
}

func (f *fakeCivic) ListPoliticians(context.Context, shared.Region, shared.Page) ([]*civic.Politician, error) {
	return nil, nil
}

func (f *fakeCivic) CreatePromise(context.Context, *civic.Promise) error { return nil }

func (f *fakeCivic) ListPromises(context.Context, string) ([]*civic.Promise, error) {
	return nil, nil
}

func (f *fakeCivic) CreateVotingRecord(_ context.Context, r *civic.VotingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, r)
	return nil
}

func (f *fakeCivic) ListVotingRecords(context.Context, string, shared.Page) ([]*civic.VotingRecord, error) {
	return f.votes, nil
}

type fakeBoard struct {
	entries []leaderboard.Entry
}

func (f *fakeBoard) GetTop(_ context.Context, _ leaderboard.Scope, page shared.Page) ([]leaderboard.Entry, error) {
	end := page.Offset + page.Limit
	if end > len(f.entries) {
		end = len(f.entries)
	}
	if page.Offset >= end {
		return nil, nil
	}
	return f.entries[page.Offset:end], nil
}

func (f *fakeBoard) GetTotalCount(context.Context, leaderboard.Scope) (int, error) {
	return len(f.entries), nil
}

func (f *fakeBoard) GetAll(context.Context) ([]leaderboard.Entry, error) { return f.entries, nil }

type fakeUsers struct {
	created []*user.User
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	f.created = append(f.created, u)
	return nil
}
func (f *fakeUsers) GetByID(context.Context, string) (*user.User, error) {
	return nil, shared.ErrUserNotFound
}
func (f *fakeUsers) UpdateProfile(context.Context, *user.User) error { return nil }
func (f *fakeUsers) Delete(context.Context, string) error           { return nil }
func (f *fakeUsers) List(context.Context, shared.Page) ([]*user.User, error) {
	return nil, nil
}
func (f *fakeUsers) ExpireStreaks(context.Context, time.Time) (int64, error) { return 0, nil }

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("redis: connection refused")
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	Meta      *ResponseMeta   `json:"meta"`
	RequestID string          `json:"request_id"`
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{Level: logger.LevelError, Output: &bytes.Buffer{}})
}

func testAuth(t *testing.T) *handlers.AdminAuth {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	return handlers.NewAdminAuth("admin", string(hash), "test-secret", time.Hour)
}

func newTestServer(t *testing.T, deps Dependencies) *Server {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	if deps.Logger == nil {
		deps.Logger = quietLogger()
	}
	return NewServer(cfg, deps)
}

func do(t *testing.T, s *Server, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func login(t *testing.T, s *Server) string {
	t.Helper()
	rec, env := do(t, s, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"username": "admin", "password": "pw",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", shared.Validationf("x", "Op", "bad"), http.StatusBadRequest},
		{"invalid input", shared.ErrSelfLike, http.StatusBadRequest},
		{"not found", shared.ErrQuizNotFound, http.StatusNotFound},
		{"conflict", shared.ErrAlreadyPerformed, http.StatusConflict},
		{"already exists", shared.NewDomainError("civic", "Create", shared.ErrAlreadyExists, "dup"), http.StatusConflict},
		{"unauthorized", handlers.ErrInvalidToken, http.StatusUnauthorized},
		{"unavailable", shared.NewDomainError("community", "AttachPhoto", shared.ErrServiceUnavailable, "off"), http.StatusServiceUnavailable},
		{"persistence", shared.WrapError("q", "Op", shared.ErrPersistence, "failed", errors.New("boom")), http.StatusInternalServerError},
		{"unknown", errors.New("dial tcp 10.0.0.5:5432: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := statusFor(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()

	s.writeError(rec, req, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, rec.Body.String(), genericErrorMessage)

	rec = httptest.NewRecorder()
	s.writeError(rec, req, shared.ErrPollClosed)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "poll is closed")
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTES
// ══════════════════════════════════════════════════════════════════════════════

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	rec, env := do(t, s, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestUnconfiguredRoute(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	rec, _ := do(t, s, http.MethodGet, "/api/v1/modules", "", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestCreateUser(t *testing.T) {
	users := &fakeUsers{}
	s := newTestServer(t, Dependencies{Users: command.NewUserHandler(users)})

	rec, env := do(t, s, http.MethodPost, "/api/v1/users", "", map[string]string{
		"nickname": "Wanjiru", "region": "Nairobi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u userView
	require.NoError(t, json.Unmarshal(env.Data, &u))
	assert.Equal(t, "Wanjiru", u.Nickname)
	assert.Equal(t, "nairobi", u.Region)
	assert.Zero(t, u.XP)
	assert.Len(t, users.created, 1)

	rec, env = do(t, s, http.MethodPost, "/api/v1/users", "", map[string]string{"nickname": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", env.Error.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/users", "", map[string]string{"nick": "Wanjiru"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown field")
}

func TestLeaderboardEndpoint(t *testing.T) {
	board := &fakeBoard{entries: []leaderboard.Entry{
		leaderboard.NewEntry(1, "u1", "amani", "🦁", "nairobi", 500),
		leaderboard.NewEntry(2, "u2", "baraka", "🐘", "kisumu", 300),
		leaderboard.NewEntry(3, "u3", "chebet", "🦒", "nakuru", 100),
	}}
	s := newTestServer(t, Dependencies{
		Leaderboard: query.NewGetLeaderboardHandler(board, nil, nil),
	})

	rec, env := do(t, s, http.MethodGet, "/api/v1/leaderboard?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res query.GetLeaderboardResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "amani", res.Entries[0].Nickname)
	assert.Equal(t, "database", res.Source)
	assert.Equal(t, 3, env.Meta.Total)
	assert.True(t, env.Meta.HasMore)
	assert.NotEmpty(t, env.RequestID)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN
// ══════════════════════════════════════════════════════════════════════════════

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, Dependencies{
		Auth:    testAuth(t),
		Catalog: command.NewCatalogHandler(newFakeCivic(), nil),
	})
	items := []map[string]string{{"name": "A", "position": "Senator"}}

	rec, env := do(t, s, http.MethodPost, "/api/v1/admin/import/politicians", "", items)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", env.Error.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/admin/import/politicians", "forged.token.value", items)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/admin/login", "", map[string]string{
		"username": "admin", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportPoliticiansPartialFailure(t *testing.T) {
	repo := newFakeCivic()
	s := newTestServer(t, Dependencies{
		Auth:    testAuth(t),
		Catalog: command.NewCatalogHandler(repo, nil),
	})
	token := login(t, s)

	items := []map[string]string{
		{"name": "Amina Odhiambo", "position": "Governor", "county": "Kisumu"},
		{"name": "", "position": "Senator"},
		{"name": "Peter Kamau", "position": "MP", "county": "Nyeri"},
	}
	rec, env := do(t, s, http.MethodPost, "/api/v1/admin/import/politicians", token, items)
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	var report command.ImportReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 3)
	assert.True(t, report.Results[0].OK)
	assert.False(t, report.Results[1].OK)
	assert.Equal(t, 1, report.Results[1].Index)
	assert.NotEmpty(t, report.Results[1].Error)
	assert.True(t, report.Results[2].OK)
	assert.Len(t, repo.politicians, 2)
}

func TestImportAllSucceededIs200(t *testing.T) {
	s := newTestServer(t, Dependencies{
		Auth:    testAuth(t),
		Catalog: command.NewCatalogHandler(newFakeCivic(), nil),
	})
	token := login(t, s)

	rec, _ := do(t, s, http.MethodPost, "/api/v1/admin/import/politicians", token, []map[string]string{
		{"name": "Amina Odhiambo", "position": "Governor"},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/admin/import/politicians", token, []map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty import")
}

func TestImportVotingRecordsUnknownPolitician(t *testing.T) {
	repo := newFakeCivic()
	s := newTestServer(t, Dependencies{
		Auth:    testAuth(t),
		Catalog: command.NewCatalogHandler(repo, nil),
	})
	token := login(t, s)

	p, err := civic.NewPolitician("Amina Odhiambo", "", "Governor", "kisumu", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.CreatePolitician(context.Background(), p))

	rec, env := do(t, s, http.MethodPost, "/api/v1/admin/import/voting-records", token, []map[string]string{
		{"politician_id": p.ID, "bill_title": "Finance Bill", "vote": "no", "voted_on": "2024-06-25"},
		{"politician_id": shared.NewID(), "bill_title": "Finance Bill", "vote": "yes", "voted_on": "2024-06-25"},
	})
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	var report command.ImportReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Succeeded)
	assert.False(t, report.Results[1].OK)
	assert.Equal(t, "2024-06-25", presentVote(repo.votes[0]).VotedOn)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

func TestRateLimitFallsBackToLocalLimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s := NewServer(cfg, Dependencies{RateLimiter: failingLimiter{}, Logger: quietLogger()})
	defer s.localLimiter.Stop()

	for i := 0; i < 2; i++ {
		rec, _ := do(t, s, http.MethodGet, "/api/v1/modules", "", nil)
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	}
	rec, env := do(t, s, http.MethodGet, "/api/v1/modules", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", env.Error.Code)

	rec, _ = do(t, s, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "probes are not limited")
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "boom"))
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(t, Dependencies{})
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHealthEndpoints(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("postgres", func(context.Context) error { return errors.New("down") })
	s := newTestServer(t, Dependencies{HealthChecker: checker})

	rec, _ := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, env := do(t, s, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", env.Error.Code)

	rec, _ = do(t, s, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
