package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type stubCounter struct {
	count int64
	err   error
	keys  []string
}

func (s *stubCounter) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return 0, s.err
	}
	s.count++
	return s.count, nil
}

func rateLimitedEcho(counter CounterStore, limit int) *echo.Echo {
	e := echo.New()
	g := e.Group("/api", RequireAuth(mockAuth{}))
	g.Use(RateLimit(counter, limit, time.Minute, log.New()))
	g.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func TestRateLimitUnderBudget(t *testing.T) {
	counter := &stubCounter{}
	e := rateLimitedEcho(counter, 2)

	for i := 0; i < 2; i++ {
		rec := doJSON(e, http.MethodGet, "/api/ping", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	if len(counter.keys) != 2 || counter.keys[0] != "user" {
		t.Fatalf("expected counter keyed by user id, got %v", counter.keys)
	}
}

func TestRateLimitOverBudget(t *testing.T) {
	counter := &stubCounter{count: 5}
	e := rateLimitedEcho(counter, 5)

	rec := doJSON(e, http.MethodGet, "/api/ping", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Code != CodeRateLimited {
		t.Fatalf("expected %s, got %q", CodeRateLimited, env.Code)
	}
}

func TestRateLimitCounterFailureLetsRequestThrough(t *testing.T) {
	counter := &stubCounter{err: errors.New("redis down")}
	e := rateLimitedEcho(counter, 1)

	rec := doJSON(e, http.MethodGet, "/api/ping", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected request to pass when the counter is unavailable, got %d", rec.Code)
	}
}

func TestDecompressRequestGzip(t *testing.T) {
	e := echo.New()
	var received []byte
	e.POST("/echo", func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		received = body
		return c.NoContent(http.StatusOK)
	}, DecompressRequest())

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(`{"hello":"world"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/echo", &buf)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if string(received) != `{"hello":"world"}` {
		t.Fatalf("expected decompressed body, got %q", received)
	}
}

func TestDecompressRequestInvalidGzip(t *testing.T) {
	e := echo.New()
	e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, DecompressRequest())

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader([]byte("not gzip")))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid gzip, got %d", rec.Code)
	}
}

func TestDecompressRequestPassThrough(t *testing.T) {
	e := echo.New()
	e.POST("/echo", func(c echo.Context) error {
		body, _ := io.ReadAll(c.Request().Body)
		return c.String(http.StatusOK, string(body))
	}, DecompressRequest())

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader([]byte("plain")))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "plain" {
		t.Fatalf("expected untouched body, got %d %q", rec.Code, rec.Body.String())
	}
}
