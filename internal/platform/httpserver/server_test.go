package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	proposalengine "fangov/contexts/governance/proposal-engine"
)

func newTestServer() *Server {
	gin.SetMode(gin.TestMode)
	return New(proposalengine.NewInMemoryModule(nil), nil, Options{
		AllowedOrigins: []string{"https://app.example.org"},
		JWTSecret:      []byte("secret"),
		Gatherer:       prometheus.NewRegistry(),
	})
}

func TestHealthz(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	server := newTestServer()
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestProposalRoutesRequireAuthorization(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/v1/proposals", strings.NewReader(`{"organization_id":"org-1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	server := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/v1/proposals", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.org" {
		t.Fatalf("expected allowed origin header, got %q (status %d)", got, rr.Code)
	}
}
