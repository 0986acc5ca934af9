package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "console output",
			config: &Config{
				Level:  "info",
				Format: "console",
				Output: "console",
			},
			wantErr: false,
		},
		{
			name: "file output",
			config: &Config{
				Level:  "debug",
				Format: "json",
				Output: "file",
				File: FileConfig{
					Filename:   filepath.Join(dir, "test.log"),
					MaxSize:    10,
					MaxAge:     7,
					MaxBackups: 3,
				},
			},
			wantErr: false,
		},
		{
			name: "invalid level",
			config: &Config{
				Level:  "invalid",
				Format: "json",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "invalid format",
			config: &Config{
				Level:  "info",
				Format: "xml",
				Output: "console",
			},
			wantErr: true,
		},
		{
			name: "invalid output",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "syslog",
			},
			wantErr: true,
		},
		{
			name: "file output without filename",
			config: &Config{
				Level:  "info",
				Format: "json",
				Output: "file",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger")
			}
			if l != nil {
				l.Info("test message")
				_ = l.Sync()
			}
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "test.log")); err != nil {
		t.Errorf("expected log file to be created: %v", err)
	}
}

func TestLogger_WithAndNamed(t *testing.T) {
	l := Nop()

	child := l.With(zap.String("key", "value"))
	if child == nil || child.Config() != l.Config() {
		t.Error("With() should keep the parent config")
	}

	named := l.Named("relay")
	if named == nil {
		t.Error("Named() returned nil logger")
	}
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID() on empty context = %q", got)
	}

	ctx = WithRequestID(ctx, "req-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-1")
	}

	l := Nop()
	ctx = ToContext(ctx, l)
	if FromContext(ctx) == nil {
		t.Error("FromContext() returned nil logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext() without a stored logger returned nil")
	}
}

func TestGinLogger_SetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(GinLogger(Nop(), MiddlewareOptions{SkipPaths: []string{"/health"}}))
	router.GET("/ping", func(c *gin.Context) {
		seen = GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	router.ServeHTTP(w, req)

	if seen != "fixed-id" {
		t.Errorf("request id in context = %q, want %q", seen, "fixed-id")
	}
	if got := w.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("X-Request-ID header = %q, want %q", got, "fixed-id")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
}

func TestGinRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GinRecovery(Nop()))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestGlobalLogger(t *testing.T) {
	if L() == nil {
		t.Fatal("L() returned nil logger")
	}

	SetGlobal(Nop())
	Debug("debug message", zap.String("key", "value"))
	Info("info message")
	Warn("warn message")
	Error("error message")
	InfoContext(WithRequestID(context.Background(), "r"), "ctx message")
	_ = Sync()
}
