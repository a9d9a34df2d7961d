package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mowind/proxyadmin-go/internal/errors"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	secret := "test-secret"
	whitelist := []string{"/health", "/ready"}

	tests := []struct {
		name           string
		enabled        bool
		path           string
		authHeader     string
		apiKeyHeader   string
		expectedStatus int
	}{
		{
			name:           "disabled auth - passes without credentials",
			enabled:        false,
			path:           "/",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "whitelisted health path - passes without credentials",
			enabled:        true,
			path:           "/health",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "whitelisted ready path - passes without credentials",
			enabled:        true,
			path:           "/ready",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "valid Bearer token - passes",
			enabled:        true,
			path:           "/",
			authHeader:     "Bearer " + secret,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "valid API Key - passes",
			enabled:        true,
			path:           "/",
			apiKeyHeader:   secret,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid Bearer token - fails",
			enabled:        true,
			path:           "/",
			authHeader:     "Bearer wrong-secret",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API Key - fails",
			enabled:        true,
			path:           "/",
			apiKeyHeader:   "wrong-secret",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing auth - fails",
			enabled:        true,
			path:           "/",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed Bearer token - fails",
			enabled:        true,
			path:           "/",
			authHeader:     "Bearer",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "wrong scheme in Authorization - fails",
			enabled:        true,
			path:           "/",
			authHeader:     "Basic " + secret,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid Bearer is not rescued by valid API Key",
			enabled:        true,
			path:           "/",
			authHeader:     "Bearer wrong-secret",
			apiKeyHeader:   secret,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(AuthMiddleware(tt.enabled, secret, whitelist))

			router.Any("/*path", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "ok"})
			})

			req := httptest.NewRequest("POST", tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			if tt.apiKeyHeader != "" {
				req.Header.Set("X-API-Key", tt.apiKeyHeader)
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
				t.Errorf("response body: %s", w.Body.String())
			}

			if tt.expectedStatus == http.StatusUnauthorized {
				body := w.Body.String()
				if !strings.Contains(body, "authentication failed") {
					t.Errorf("expected 'authentication failed' in response body, got: %s", body)
				}
				if strings.Contains(body, "missing") || strings.Contains(body, "invalid") || strings.Contains(body, "token") {
					t.Errorf("response body should not leak sensitive info: %s", body)
				}
			}
		})
	}
}

func TestAuthMiddleware_RootWhitelist(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(AuthMiddleware(true, "secret", []string{"/"}))
	router.Any("/*path", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := []struct {
		path           string
		expectedStatus int
	}{
		{"/", http.StatusOK},
		{"/admin", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != tt.expectedStatus {
			t.Errorf("path %s: expected status %d, got %d", tt.path, tt.expectedStatus, w.Code)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORSMiddleware())
	router.POST("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Expected Access-Control-Allow-Origin *, got %s", got)
		}
	})

	t.Run("actual request", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Expected Access-Control-Allow-Origin *, got %s", got)
		}
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		seen = apperrors.OperationID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("propagates header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if seen != "req-42" {
			t.Errorf("Expected operation id req-42, got %q", seen)
		}
		if got := w.Header().Get(RequestIDHeader); got != "req-42" {
			t.Errorf("Expected response header req-42, got %q", got)
		}
	})

	t.Run("generates id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if seen == "" || seen == "req-42" {
			t.Errorf("Expected a generated operation id, got %q", seen)
		}
		if got := w.Header().Get(RequestIDHeader); got != seen {
			t.Errorf("Expected response header %q, got %q", seen, got)
		}
	})
}
