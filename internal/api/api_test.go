package api_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/wordmask/internal/api"
	"github.com/go-ports/wordmask/internal/checkers"
	"github.com/go-ports/wordmask/internal/config"
	"github.com/go-ports/wordmask/internal/service"
)

// newTestServer returns an api.Server over a fresh SQLite-backed service
// seeded with words.
func newTestServer(t *testing.T, words ...string) *api.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Store.DSN = filepath.Join(t.TempDir(), "words.db")

	svc, err := service.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("newTestServer: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	for _, w := range words {
		if _, err := svc.CreateWord(context.Background(), w); err != nil {
			t.Fatalf("newTestServer: create %q: %v", w, err)
		}
	}
	return api.New(svc, cfg.Server, nil)
}

// do sends a request through srv and returns the recorded response.
func do(srv *api.Server, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// POST /sanitize
// ---------------------------------------------------------------------------

func TestSanitize_HappyPath(t *testing.T) {
	c := qt.New(t)
	srv := newTestServer(t, "seleCt * from", "aDd")

	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "JSON string body",
			body: `"Pran test string sElect * frOm when I add things here"`,
			want: "Pran test string ************* when I *** things here",
		},
		{
			name: "raw text body",
			body: "Pran test string sElect * frOm when I add things here",
			want: "Pran test string ************* when I *** things here",
		},
		{
			name: "clean string",
			body: `"This is a clean string"`,
			want: "This is a clean string",
		},
		{
			name: "escaped JSON string",
			body: `"say \"add\"\n"`,
			want: "say \"***\"\n",
		},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			rec := do(srv, http.MethodPost, "/sanitize", tc.body)
			c.Assert(rec.Code, qt.Equals, http.StatusOK)
			c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "text/plain; charset=utf-8")
			c.Assert(rec.Body.String(), qt.Equals, tc.want)
		})
	}
}

func TestSanitize_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("no words configured", func(c *qt.C) {
		srv := newTestServer(t)
		rec := do(srv, http.MethodPost, "/sanitize", `"anything"`)
		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
		c.Assert(rec.Body.String(), qt.Equals, "No sensitive words found in the repository.")
	})

	srv := newTestServer(t, "add")
	for _, body := range []string{"", `""`, "null"} {
		c.Run("empty input "+body, func(c *qt.C) {
			rec := do(srv, http.MethodPost, "/sanitize", body)
			c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
			c.Assert(rec.Body.String(), qt.Equals, "Input cannot be empty")
		})
	}

	c.Run("empty input resolves no words", func(c *qt.C) {
		rec := do(srv, http.MethodGet, "/health", "")
		c.Assert(rec.Body.String(), checkers.JSONPathEquals("$.cache.misses"), float64(0))
	})

	c.Run("wrong method", func(c *qt.C) {
		rec := do(srv, http.MethodGet, "/sanitize", "")
		c.Assert(rec.Code, qt.Equals, http.StatusMethodNotAllowed)
	})
}

// ---------------------------------------------------------------------------
// POST /sanitize/batch
// ---------------------------------------------------------------------------

func TestSanitizeBatch_HappyPath(t *testing.T) {
	c := qt.New(t)
	srv := newTestServer(t, "seleCt * from", "aDd")

	rec := do(srv, http.MethodPost, "/sanitize/batch",
		`["add it", "This is a clean string", "", "SELECT * FROM t"]`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Header().Get("Content-Type"), qt.Equals, "application/json; charset=utf-8")
	c.Assert(rec.Body.String(), qt.JSONEquals, []string{"*** it", "This is a clean string", "", "************* t"})
}

func TestSanitizeBatch_FailurePath(t *testing.T) {
	c := qt.New(t)
	srv := newTestServer(t, "add")

	cases := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"absent body", "", http.StatusBadRequest, "Input cannot be empty"},
		{"null body", "null", http.StatusBadRequest, "Input cannot be empty"},
		{"empty array", "[]", http.StatusBadRequest, "Input cannot be empty"},
		{"object body", `{"texts":["add"]}`, http.StatusBadRequest, "Invalid request body"},
		{"not JSON", "add, add", http.StatusBadRequest, "Invalid request body"},
		{"number element", `["add", 1]`, http.StatusBadRequest, "Invalid request body"},
		{"null element", `["add", null]`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			rec := do(srv, http.MethodPost, "/sanitize/batch", tc.body)
			c.Assert(rec.Code, qt.Equals, tc.wantCode)
			c.Assert(rec.Body.String(), qt.Equals, tc.wantBody)
		})
	}

	c.Run("rejected bodies resolve no words", func(c *qt.C) {
		rec := do(srv, http.MethodGet, "/health", "")
		c.Assert(rec.Body.String(), checkers.JSONPathEquals("$.cache.misses"), float64(0))
	})

	c.Run("no words configured", func(c *qt.C) {
		srv := newTestServer(t)
		rec := do(srv, http.MethodPost, "/sanitize/batch", `["add"]`)
		c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
		c.Assert(rec.Body.String(), qt.Equals, "No sensitive words found in the repository.")
	})
}

// ---------------------------------------------------------------------------
// /words
// ---------------------------------------------------------------------------

func TestWords_CRUD(t *testing.T) {
	c := qt.New(t)
	srv := newTestServer(t)

	rec := do(srv, http.MethodPost, "/words", `"secret"`)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	c.Assert(rec.Header().Get("Location"), qt.Equals, "/words/1")
	c.Assert(rec.Body.String(), qt.Equals, "1")

	rec = do(srv, http.MethodGet, "/words/1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.JSONEquals, "secret")

	rec = do(srv, http.MethodPut, "/words/1", "classified")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.Equals, "1")

	rec = do(srv, http.MethodGet, "/words", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), qt.JSONEquals, []string{"classified"})

	rec = do(srv, http.MethodPost, "/sanitize", `"this is classified"`)
	c.Assert(rec.Body.String(), qt.Equals, "this is **********")

	rec = do(srv, http.MethodDelete, "/words/1", "")
	c.Assert(rec.Code, qt.Equals, http.StatusNoContent)
	c.Assert(rec.Body.Len(), qt.Equals, 0)

	rec = do(srv, http.MethodGet, "/words", "")
	c.Assert(rec.Body.String(), qt.JSONEquals, []string{})
}

func TestWords_FailurePath(t *testing.T) {
	c := qt.New(t)
	srv := newTestServer(t, "taken")

	cases := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{"create empty", http.MethodPost, "/words", "", http.StatusBadRequest, "Request cannot be empty"},
		{"create empty JSON string", http.MethodPost, "/words", `""`, http.StatusBadRequest, "Request cannot be empty"},
		{"create duplicate", http.MethodPost, "/words", `"taken"`, http.StatusBadRequest, "Word already exists"},
		{"create too long", http.MethodPost, "/words", strings.Repeat("x", service.MaxWordLen+1), http.StatusBadRequest, "Word exceeds 512 characters"},
		{"update too long", http.MethodPut, "/words/1", strings.Repeat("é", service.MaxWordLen+1), http.StatusBadRequest, "Word exceeds 512 characters"},
		{"get zero id", http.MethodGet, "/words/0", "", http.StatusBadRequest, "Invalid Id"},
		{"get negative id", http.MethodGet, "/words/-3", "", http.StatusBadRequest, "Invalid Id"},
		{"get non-numeric id", http.MethodGet, "/words/abc", "", http.StatusBadRequest, "Invalid Id"},
		{"get missing", http.MethodGet, "/words/99", "", http.StatusNotFound, "Not Found"},
		{"update invalid id", http.MethodPut, "/words/0", `"x"`, http.StatusBadRequest, "Invalid Id"},
		{"update blank word", http.MethodPut, "/words/1", `"  "`, http.StatusBadRequest, "Request cannot be empty"},
		{"update missing", http.MethodPut, "/words/99", `"x"`, http.StatusNotFound, "Not Found"},
		{"delete invalid id", http.MethodDelete, "/words/0", "", http.StatusBadRequest, "Invalid Id"},
		{"delete missing", http.MethodDelete, "/words/99", "", http.StatusNotFound, "Not Found"},
	}

	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			rec := do(srv, tc.method, tc.path, tc.body)
			c.Assert(rec.Code, qt.Equals, tc.wantCode)
			c.Assert(rec.Body.String(), qt.Equals, tc.wantBody)
		})
	}
}

// ---------------------------------------------------------------------------
// GET /health
// ---------------------------------------------------------------------------

func TestHealth_HappyPath(t *testing.T) {
	c := qt.New(t)
	srv := newTestServer(t, "a", "b")

	do(srv, http.MethodPost, "/sanitize", `"a"`)
	rec := do(srv, http.MethodGet, "/health", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(rec.Body.String(), checkers.JSONPathEquals("$.status"), "ok")
	c.Assert(rec.Body.String(), checkers.JSONPathEquals("$.store"), true)
	c.Assert(rec.Body.String(), checkers.JSONPathEquals("$.cache.cached"), true)
	c.Assert(rec.Body.String(), checkers.JSONPathEquals("$.cache.words"), float64(2))
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	c := qt.New(t)
	srv := newTestServer(t, "a")

	c.Run("assigned when absent", func(c *qt.C) {
		rec := do(srv, http.MethodGet, "/health", "")
		c.Assert(rec.Header().Get(api.RequestIDHeader), qt.Matches, `[0-9a-f-]{36}`)
	})

	c.Run("assigned on unmatched routes", func(c *qt.C) {
		rec := do(srv, http.MethodGet, "/nope", "")
		c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
		c.Assert(rec.Header().Get(api.RequestIDHeader), qt.Matches, `[0-9a-f-]{36}`)

		rec = do(srv, http.MethodGet, "/sanitize", "")
		c.Assert(rec.Code, qt.Equals, http.StatusMethodNotAllowed)
		c.Assert(rec.Header().Get(api.RequestIDHeader), qt.Matches, `[0-9a-f-]{36}`)
	})

	c.Run("echoed when present", func(c *qt.C) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(api.RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		c.Assert(rec.Header().Get(api.RequestIDHeader), qt.Equals, "abc-123")
	})
}

func TestRateLimit(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	cfg.Store.DSN = filepath.Join(t.TempDir(), "words.db")
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 2

	svc, err := service.New(context.Background(), cfg, nil)
	c.Assert(err, qt.IsNil)
	defer svc.Close()
	srv := api.New(svc, cfg.Server, nil)

	c.Assert(do(srv, http.MethodGet, "/health", "").Code, qt.Equals, http.StatusOK)
	c.Assert(do(srv, http.MethodGet, "/health", "").Code, qt.Equals, http.StatusOK)
	rec := do(srv, http.MethodGet, "/health", "")
	c.Assert(rec.Code, qt.Equals, http.StatusTooManyRequests)
	c.Assert(rec.Header().Get("Retry-After"), qt.Equals, "1")

	rec = do(srv, http.MethodGet, "/does-not-exist", "")
	c.Assert(rec.Code, qt.Equals, http.StatusTooManyRequests)
}
