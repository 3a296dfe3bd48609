package account

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/documents"
)

func newClaimRouter(t *testing.T, repo *documents.MemoryRepo, guest bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Set("isGuest", guest)
		c.Next()
	})
	NewHandler(NewService(repo)).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func claim(router *gin.Engine, guestID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", nil)
	if guestID != "" {
		req.Header.Set("X-Guest-Id", guestID)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestClaimGuestMigratesDocuments(t *testing.T) {
	repo := documents.NewMemoryRepo()
	router := newClaimRouter(t, repo, false)

	guestID := "11111111-1111-1111-1111-111111111111"
	for _, id := range []string{"doc-1", "doc-2"} {
		doc := documents.Document{
			ID:        id,
			UserID:    "guest:" + guestID,
			FileName:  "lease.pdf",
			MimeType:  "application/pdf",
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.Create(context.Background(), doc); err != nil {
			t.Fatalf("create document: %v", err)
		}
	}
	other := documents.Document{ID: "doc-3", UserID: "guest:someone-else", CreatedAt: time.Now().UTC()}
	if err := repo.Create(context.Background(), other); err != nil {
		t.Fatalf("create document: %v", err)
	}

	resp := claim(router, guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var result ClaimResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedDocuments != 2 {
		t.Fatalf("expected 2 migrated, got %d", result.MigratedDocuments)
	}

	docs, err := repo.ListByUser(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs for user, got %d", len(docs))
	}

	// Second claim is a no-op.
	resp = claim(router, guestID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 on repeat, got %d", resp.Code)
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.MigratedDocuments != 0 {
		t.Fatalf("expected 0 migrated on repeat, got %d", result.MigratedDocuments)
	}
}

func TestClaimGuestRejections(t *testing.T) {
	tests := []struct {
		name    string
		guest   bool
		guestID string
		status  int
	}{
		{"caller is guest", true, "11111111-1111-1111-1111-111111111111", http.StatusUnauthorized},
		{"missing header", false, "", http.StatusBadRequest},
		{"invalid id", false, "not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newClaimRouter(t, documents.NewMemoryRepo(), tt.guest)
			if resp := claim(router, tt.guestID); resp.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.Code)
			}
		})
	}
}

func TestClaimGuestReadsIDFromBody(t *testing.T) {
	repo := documents.NewMemoryRepo()
	guestID := "22222222-2222-2222-2222-222222222222"
	if err := repo.Create(context.Background(), documents.Document{ID: "doc-9", UserID: "guest:" + guestID, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("create document: %v", err)
	}
	router := newClaimRouter(t, repo, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", strings.NewReader(`{"guestId":"`+guestID+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"migratedDocuments":1`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/account/claim-guest", strings.NewReader(`{"guestId":`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.Code)
	}
}
