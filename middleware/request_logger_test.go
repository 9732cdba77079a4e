package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestRequestLoggerMiddleware(t *testing.T) {
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.GET("/contracts/:id", func(c *gin.Context) {
		c.Set("username", "maria")
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/error", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
	})
	router.GET("/server-error", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	})

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		logLevel       string
		contains       []string
	}{
		{"success request", "/contracts/c-1", http.StatusOK, "INFO", []string{"route=/contracts/:id", "username=maria"}},
		{"client error", "/error", http.StatusBadRequest, "WARN", nil},
		{"server error", "/server-error", http.StatusInternalServerError, "ERROR", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()

			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			logOutput := buf.String()
			if !strings.Contains(logOutput, "request completed") {
				t.Error("Expected 'request completed' in log")
			}
			if !strings.Contains(logOutput, tt.path) {
				t.Errorf("Expected path '%s' in log", tt.path)
			}
			if !strings.Contains(logOutput, tt.logLevel) {
				t.Errorf("Expected log level '%s' in log", tt.logLevel)
			}
			for _, want := range tt.contains {
				if !strings.Contains(logOutput, want) {
					t.Errorf("Expected %q in log, got %s", want, logOutput)
				}
			}
		})
	}
}

func TestRequestLoggerWithQuery(t *testing.T) {
	buf := captureLogs(t)

	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	req := httptest.NewRequest("GET", "/test?within_days=30", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "query") {
		t.Error("Expected query parameters in log")
	}
}
