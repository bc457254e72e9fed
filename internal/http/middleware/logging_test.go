package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/rid", nil))
	if w.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rid", nil)
	req.Header.Set("x-request-id", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated id, got %q", got)
	}
}

func TestUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(UserID())
	r.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, UserIDFrom(c)) })

	cases := map[string]string{
		"":                      AnonymousUser,
		"  chef_mina ":          "chef_mina",
		"bad user":              AnonymousUser,
		strings.Repeat("x", 65): AnonymousUser,
		"u@example.com":         "u@example.com",
	}
	for header, want := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set(userIDHeader, header)
		}
		r.ServeHTTP(w, req)
		if w.Body.String() != want {
			t.Fatalf("header %q: got %q want %q", header, w.Body.String(), want)
		}
	}
}

func TestLogger_LevelsSkipAndMask(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), UserID(), Logger(LogOptions{SkipPaths: []string{"/health"}, MaskQuery: []string{"token"}}))
	r.GET("/ok", func(c *gin.Context) {
		LoggerFrom(c).Info().Msg("inside")
		c.String(http.StatusOK, "ok")
	})
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ok?token=secret&q=kimchi", nil)
	req.Header.Set(userIDHeader, "u1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	lines := logLines(t, buf)
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines (inside + 3 access), got %d: %s", len(lines), buf.String())
	}
	if lines[0]["message"] != "inside" || lines[0]["user_id"] != "u1" {
		t.Fatalf("request-scoped logger missing fields: %v", lines[0])
	}
	q, _ := lines[1]["query"].(string)
	if strings.Contains(q, "secret") || !strings.Contains(q, "q=kimchi") {
		t.Fatalf("query not masked: %q", q)
	}
	for i, want := range []string{"info", "warn", "error"} {
		if got := lines[i+1]["level"]; got != want {
			t.Fatalf("line %d level = %v; want %s", i+1, got, want)
		}
	}
}

func TestRecovery_JSON500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "rid-1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "internal_error" || body["request_id"] != "rid-1" {
		t.Fatalf("body = %v", body)
	}
}

func TestHelpers(t *testing.T) {
	if truncate("abcdef", 3) != "abc…" || truncate("abc", 3) != "abc" || truncate("abc", 0) != "abc" {
		t.Fatalf("truncate mismatch")
	}
	if asString(42) != "" || asString("x") != "x" {
		t.Fatalf("asString mismatch")
	}
	if got := maskQuery("%zz", map[string]struct{}{"a": {}}); got != redacted {
		t.Fatalf("unparseable query should be redacted, got %q", got)
	}
	if got := maskQuery("a=1", nil); got != "a=1" {
		t.Fatalf("no mask keys should keep query, got %q", got)
	}
}
