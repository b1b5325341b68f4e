package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHealthStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/healthz", NewHealthHandler().Status)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %q", resp.Status)
	}
	if resp.StartedAt.IsZero() {
		t.Fatal("expected a start timestamp")
	}
}

func TestReadinessAllChecksPass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHealthHandler(
		WithReadinessCheck("database", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("redis", func(ctx context.Context) error { return nil }),
	)

	r := gin.New()
	r.GET("/readyz", handler.Readiness)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp ReadinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ready" {
		t.Fatalf("expected ready, got %q", resp.Status)
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(resp.Checks))
	}
}

func TestReadinessFailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHealthHandler(
		WithReadinessCheck("database", func(ctx context.Context) error { return nil }),
		WithReadinessCheck("redis", func(ctx context.Context) error { return errors.New("connection refused") }),
	)

	r := gin.New()
	r.GET("/readyz", handler.Readiness)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp ReadinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "not ready" {
		t.Fatalf("expected not ready, got %q", resp.Status)
	}

	var redisResult *ReadinessCheckResult
	for i := range resp.Checks {
		if resp.Checks[i].Name == "redis" {
			redisResult = &resp.Checks[i]
		}
	}
	if redisResult == nil {
		t.Fatal("expected a redis check result")
	}
	if redisResult.Status != "unavailable" || redisResult.Error != "connection refused" {
		t.Fatalf("unexpected redis result: %+v", *redisResult)
	}
}
