package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/shared/requestctx"
	"lexease-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	var ctxRequestID string
	router := gin.New()
	router.Use(RequestID(), Auth(), Logging())
	router.GET("/api/v1/documents/:id/analysis", func(c *gin.Context) {
		c.Set(DocumentIDKey, c.Param("id"))
		c.Set(StageKey, "summary")
		ctxRequestID = requestctx.RequestID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/analysis", nil)
	req.Header.Set("X-Guest-Id", "guest1")
	req.Header.Set("X-Request-Id", "req-abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if ctxRequestID != "req-abc" {
		t.Fatalf("expected request id in request context, got %q", ctxRequestID)
	}
	if resp.Header().Get("X-Request-Id") != "req-abc" {
		t.Fatalf("expected request id echoed")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	for _, key := range []string{"request_id", "user_id", "document_id", "duration_ms", "status", "route", "stage"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["user_id"] != "guest:guest1" || payload["document_id"] != "doc-1" || payload["route"] != "/api/v1/documents/:id/analysis" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(&bytes.Buffer{})
	defer restore()

	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"code":"INTERNAL_ERROR"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
