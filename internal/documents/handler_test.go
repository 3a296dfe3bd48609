package documents

import (
	"bytes"
	"encoding/json"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/extract"
	"lexease-backend/internal/shared/server/middleware"
	"lexease-backend/internal/shared/storage/object/local"
	"lexease-backend/internal/shared/telemetry"
)

func newTestRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)

	dir := t.TempDir()
	svc := &Service{Store: local.New(dir), Repo: NewMemoryRepo(), Extractor: extract.New(nil)}
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(svc).RegisterRoutes(api)
	return r, dir
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "test-guest")
	return req
}

func guestRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Guest-Id", "test-guest")
	return req
}

func TestDocumentsUploadDetailAndDelete(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "contract.txt", []byte("Party A shall pay Party B $500 within 30 days.")))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.DocumentID == "" || !created.HasText || created.MimeType != "text/plain" {
		t.Fatalf("unexpected create response %+v", created)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var detail DocumentDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail.DocumentText != "Party A shall pay Party B $500 within 30 days." {
		t.Fatalf("unexpected text %q", detail.DocumentText)
	}
	if detail.Analysis.Summary != nil || detail.Analysis.Stages[FieldSummary] != StagePending {
		t.Fatalf("expected pending analysis, got %+v", detail.Analysis)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/download"))
	if resp.Code != http.StatusOK || resp.Body.String() != "Party A shall pay Party B $500 within 30 days." {
		t.Fatalf("unexpected download %d %q", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodDelete, "/api/v1/documents/"+created.DocumentID))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 after delete, got %d", resp.Code)
	}
}

func TestDocumentsUploadUnsupportedFormat(t *testing.T) {
	router, dir := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "book.xls", []byte{0x00, 0x01, 0x02, 0x03}))
	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error.Code != "UNSUPPORTED_FILE_FORMAT" {
		t.Fatalf("unexpected error code %q", body.Error.Code)
	}

	var files []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if len(files) != 0 {
		t.Fatalf("expected rejected upload to be removed, found %v", files)
	}
}

func TestDocumentsUploadRequiresFile(t *testing.T) {
	router, _ := newTestRouter(t)
	req := guestRequest(http.MethodPost, "/api/v1/documents")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestDocumentsListRequiresLogin(t *testing.T) {
	router, _ := newTestRouter(t)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/documents"))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestDownloadQuotesFileNameInHeader(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, `lease "final".txt`, []byte("Tenant pays rent monthly.")))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created DocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, guestRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/download"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	disposition, params, err := mime.ParseMediaType(resp.Header().Get("Content-Disposition"))
	if err != nil {
		t.Fatalf("parse Content-Disposition %q: %v", resp.Header().Get("Content-Disposition"), err)
	}
	if disposition != "attachment" || params["filename"] != `lease "final".txt` {
		t.Fatalf("unexpected disposition %q %v", disposition, params)
	}
}

func TestAttachmentHeaderStripsLineBreaks(t *testing.T) {
	got := attachmentHeader("deed.pdf\r\nSet-Cookie: a=b")
	if strings.ContainsAny(got, "\r\n") {
		t.Fatalf("header value must be a single line, got %q", got)
	}
	_, params, err := mime.ParseMediaType(got)
	if err != nil {
		t.Fatalf("parse %q: %v", got, err)
	}
	if params["filename"] != "deed.pdfSet-Cookie: a=b" {
		t.Fatalf("unexpected filename %q", params["filename"])
	}

	if got := attachmentHeader("../etc/passwd"); got != `attachment; filename=document` {
		t.Fatalf("unexpected fallback header %q", got)
	}
}
