package bootstrap

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"lexease-backend/internal/shared/config"
	"lexease-backend/internal/shared/telemetry"
)

func buildTestApp(t *testing.T) *App {
	t.Helper()
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)

	app, err := Build(config.Config{
		Env:                 "dev",
		ObjectStoreType:     "local",
		LocalStoreDir:       t.TempDir(),
		LLMProvider:         "none",
		AnalysisMode:        "streaming",
		TemplateStorePrefix: "legal_drafts",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func guestRequest(method, path string, body *bytes.Buffer, contentType string) *http.Request {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-Guest-Id", "11111111-1111-1111-1111-111111111111")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestBuildInMemoryServesCoreRoutes(t *testing.T) {
	app := buildTestApp(t)
	if app.DB != nil {
		t.Fatalf("expected in-memory repositories")
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous templates: expected 401, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/templates", nil, ""))
	if resp.Code != http.StatusOK {
		t.Fatalf("templates: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte("analysis_started_total")) {
		t.Fatalf("metrics: unexpected response %d", resp.Code)
	}
}

func TestUploadThenAnalyzeThroughRouter(t *testing.T) {
	app := buildTestApp(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", "contract.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("Party A shall pay Party B $500 within 30 days.")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, guestRequest(http.MethodPost, "/api/v1/documents", body, writer.FormDataContentType()))
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var doc struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil || doc.DocumentID == "" {
		t.Fatalf("decode upload: %v %s", err, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	app.Router.ServeHTTP(resp, guestRequest(http.MethodPost, "/api/v1/documents/"+doc.DocumentID+"/analyze",
		bytes.NewBufferString(`{"role":"lawyer","mode":"batch"}`), "application/json"))
	if resp.Code != http.StatusAccepted {
		t.Fatalf("analyze: expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
}
