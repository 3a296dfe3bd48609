package events

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/shared/server/middleware"
	"lexease-backend/internal/shared/telemetry"
)

type fakeDocs struct {
	doc documents.Document
}

func (f fakeDocs) Get(_ context.Context, userID, documentID string) (documents.Document, error) {
	if userID != f.doc.UserID || documentID != f.doc.ID {
		return documents.Document{}, documents.ErrNotFound
	}
	return f.doc, nil
}

func newEventsServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)

	docs := fakeDocs{doc: documents.Document{
		ID:       "doc-1",
		UserID:   "guest:g1",
		Analysis: documents.Analysis{Summary: &documents.Summary{PlainLanguageSummary: "already done"}},
	}}
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(hub, docs, nil).RegisterRoutes(api)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Guest-Id": []string{"g1"}})
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestStreamSendsSnapshotThenEvents(t *testing.T) {
	hub := NewHub(8)
	srv := newEventsServer(t, hub)
	conn := dial(t, srv, "/api/v1/documents/doc-1/events")
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot map[string]any
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, TypeSnapshot, snapshot["type"])
	payload := snapshot["payload"].(map[string]any)
	assert.Equal(t, "already done", payload["summary"].(map[string]any)["plainLanguageSummary"])
	assert.Nil(t, payload["entities"])

	require.Eventually(t, func() bool { return hub.Subscribers("doc-1") == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish(Event{Type: TypeStageCompleted, DocumentID: "doc-1", Stage: "risks"})

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeStageCompleted, ev.Type)
	assert.Equal(t, "risks", ev.Stage)
}

func TestStreamMsgpackFrames(t *testing.T) {
	hub := NewHub(8)
	srv := newEventsServer(t, hub)
	conn := dial(t, srv, "/api/v1/documents/doc-1/events?format=msgpack")
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, msgType)

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(data, &decoded))
	assert.Equal(t, TypeSnapshot, decoded["type"])
	assert.Equal(t, "doc-1", decoded["documentId"])
}

func TestStreamRejectsForeignDocument(t *testing.T) {
	srv := newEventsServer(t, NewHub(1))
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/documents/other/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Guest-Id": []string{"g1"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// racingDocs publishes a stage event while the snapshot is being loaded.
type racingDocs struct {
	fakeDocs
	hub *Hub
}

func (r racingDocs) Get(ctx context.Context, userID, documentID string) (documents.Document, error) {
	doc, err := r.fakeDocs.Get(ctx, userID, documentID)
	if err == nil {
		r.hub.Publish(Event{Type: TypeStageCompleted, DocumentID: documentID, Stage: "risks"})
	}
	return doc, err
}

func TestStreamKeepsEventsPublishedDuringSnapshotLoad(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(restore)

	hub := NewHub(8)
	docs := racingDocs{
		fakeDocs: fakeDocs{doc: documents.Document{ID: "doc-1", UserID: "guest:g1"}},
		hub:      hub,
	}
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.Auth())
	NewHandler(hub, docs, nil).RegisterRoutes(api)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, "/api/v1/documents/doc-1/events")
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snapshot Event
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, TypeSnapshot, snapshot.Type)

	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeStageCompleted, ev.Type)
	assert.Equal(t, "risks", ev.Stage)
}

func TestStreamReleasesSubscriptionWhenDocumentMissing(t *testing.T) {
	hub := NewHub(1)
	srv := newEventsServer(t, hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/documents/other/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Guest-Id": []string{"g1"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Eventually(t, func() bool { return hub.Subscribers("other") == 0 }, time.Second, 10*time.Millisecond)
}
