//go:build !integration

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/usecase"
)

func newLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func newTestAuth() *AuthManager {
	return NewAuthManager("test-secret", map[string]string{"olena": "hunter2"}, false, "", time.Hour)
}

// fakeApprovalUC is a function-field ApprovalUseCase.
type fakeApprovalUC struct {
	listPendingFn  func(ctx context.Context, limit int) ([]*model.ContentItem, error)
	getFn          func(ctx context.Context, id int64) (*model.ContentItem, error)
	approveFn      func(ctx context.Context, id int64, moderator string, req usecase.ApproveRequest) error
	rejectFn       func(ctx context.Context, id int64, moderator, reason string) error
	editFn         func(ctx context.Context, id int64, moderator string, req usecase.EditRequest) error
	auditTrailFn   func(ctx context.Context, id int64) ([]*model.ApprovalLogEntry, error)
	resetRetriesFn func(ctx context.Context, id int64, platform model.Platform) error
}

func (f *fakeApprovalUC) ListPending(ctx context.Context, limit int) ([]*model.ContentItem, error) {
	if f.listPendingFn != nil {
		return f.listPendingFn(ctx, limit)
	}
	return nil, nil
}

func (f *fakeApprovalUC) Get(ctx context.Context, id int64) (*model.ContentItem, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return &model.ContentItem{ID: id, Status: model.StatusPendingApproval}, nil
}

func (f *fakeApprovalUC) Approve(ctx context.Context, id int64, moderator string, req usecase.ApproveRequest) error {
	if f.approveFn != nil {
		return f.approveFn(ctx, id, moderator, req)
	}
	return nil
}

func (f *fakeApprovalUC) Reject(ctx context.Context, id int64, moderator, reason string) error {
	if f.rejectFn != nil {
		return f.rejectFn(ctx, id, moderator, reason)
	}
	return nil
}

func (f *fakeApprovalUC) Edit(ctx context.Context, id int64, moderator string, req usecase.EditRequest) error {
	if f.editFn != nil {
		return f.editFn(ctx, id, moderator, req)
	}
	return nil
}

func (f *fakeApprovalUC) AuditTrail(ctx context.Context, id int64) ([]*model.ApprovalLogEntry, error) {
	if f.auditTrailFn != nil {
		return f.auditTrailFn(ctx, id)
	}
	return nil, nil
}

func (f *fakeApprovalUC) ResetRetries(ctx context.Context, id int64, platform model.Platform) error {
	if f.resetRetriesFn != nil {
		return f.resetRetriesFn(ctx, id, platform)
	}
	return nil
}

// fakeStatsUC is a function-field StatsUseCase.
type fakeStatsUC struct {
	summaryFn func(ctx context.Context) (*usecase.PipelineStats, error)
}

func (f *fakeStatsUC) Summary(ctx context.Context) (*usecase.PipelineStats, error) {
	if f.summaryFn != nil {
		return f.summaryFn(ctx)
	}
	return &usecase.PipelineStats{ByStatus: map[model.Status]int{}, LastPostedAt: map[model.Platform]time.Time{}}, nil
}

func newTestServer(approval *fakeApprovalUC) *Server {
	return NewServer(approval, &fakeStatsUC{}, nil, newTestAuth(), newLogger())
}

// login performs a real login and returns the bearer token.
func login(t *testing.T, router http.Handler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"name":"olena","password":"hunter2"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d, body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := jsonDecode(rec.Body.String(), &body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if body.Token == "" {
		t.Fatal("empty token")
	}
	return body.Token
}

func TestLogin(t *testing.T) {
	router := newTestServer(&fakeApprovalUC{}).Router()

	t.Run("valid credentials set a session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"name":"olena","password":"hunter2"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		cookies := rec.Result().Cookies()
		found := false
		for _, c := range cookies {
			if c.Name == "mod_session" && c.Value != "" {
				found = true
			}
		}
		if !found {
			t.Errorf("session cookie not set, cookies=%v", cookies)
		}
	})

	t.Run("wrong password -> 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"name":"olena","password":"nope"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
	})

	t.Run("unknown moderator -> 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(`{"name":"mallory","password":"hunter2"}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("want 403, got %d", rec.Code)
		}
	})

	t.Run("missing body -> 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})
}

func TestRequireSession(t *testing.T) {
	router := newTestServer(&fakeApprovalUC{}).Router()

	t.Run("no token -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/content/pending", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("garbage token -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/content/pending", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}
	})

	t.Run("bearer token works", func(t *testing.T) {
		token := login(t, router)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/content/pending", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("cookie works", func(t *testing.T) {
		token := login(t, router)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/content/pending", nil)
		req.AddCookie(&http.Cookie{Name: "mod_session", Value: token})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	})

	t.Run("health and metrics stay public", func(t *testing.T) {
		for _, path := range []string{"/health", "/metrics"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("%s: want 200, got %d", path, rec.Code)
			}
		}
	})
}
