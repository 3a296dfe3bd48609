package events

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/shared/server/middleware"
	"lexease-backend/internal/shared/server/respond"
	"lexease-backend/internal/shared/telemetry"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// DocumentGetter resolves a document the caller owns.
type DocumentGetter interface {
	Get(ctx context.Context, userID, documentID string) (documents.Document, error)
}

// Handler streams a document's change events over a WebSocket.
type Handler struct {
	Hub      *Hub
	Docs     DocumentGetter
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler. allowedOrigins mirrors the CORS list; an
// empty list or "*" accepts any origin.
func NewHandler(hub *Hub, docs DocumentGetter, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Handler{
		Hub:  hub,
		Docs: docs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				if _, ok := allowed["*"]; ok {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// RegisterRoutes attaches the events route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents/:id/events", h.stream)
}

func (h *Handler) stream(c *gin.Context) {
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)
	userID := middleware.UserIDFromContext(c)

	format := c.DefaultQuery("format", FormatJSON)
	if format != FormatJSON && format != FormatMsgpack {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "format must be json or msgpack", nil)
		return
	}

	// Subscribe before reading the snapshot so events published while it is
	// loaded are buffered instead of lost.
	sub := h.Hub.Subscribe(documentID)
	defer sub.Close()

	doc, err := h.Docs.Get(c.Request.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to fetch document", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		telemetry.Warn("events.upgrade_failed", map[string]any{"document_id": documentID, "error": err})
		return
	}
	defer conn.Close()

	telemetry.Info("events.subscribed", map[string]any{
		"document_id": documentID,
		"user_id":     userID,
		"format":      format,
		"request_id":  middleware.RequestIDFromContext(c),
	})

	done := make(chan struct{})
	go readPump(conn, done)

	snapshot := Event{
		Type:       TypeSnapshot,
		DocumentID: documentID,
		Payload:    documents.ToAnalysisResponse(doc.Analysis),
		Timestamp:  time.Now().UTC(),
	}
	if err := writeEvent(conn, format, snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(conn, format, ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so control messages are processed, and
// closes done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				telemetry.Warn("events.read_failed", map[string]any{"error": err})
			}
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, format string, ev Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if format == FormatMsgpack {
		data, err := EncodeMsgpack(ev)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, data)
	}
	return conn.WriteJSON(ev)
}

// EncodeMsgpack encodes ev using the same field names as its JSON form.
func EncodeMsgpack(ev Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(ev); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
