package analyses

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/shared/server/middleware"
	"lexease-backend/internal/shared/server/respond"
	"lexease-backend/internal/shared/telemetry"
)

// RoleLookup returns a user's saved audience role, or "" when unset.
type RoleLookup interface {
	PreferredRole(ctx context.Context, userID string) (string, error)
}

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc   *Service
	Roles RoleLookup
}

// NewHandler constructs a Handler. roles may be nil.
func NewHandler(svc *Service, roles RoleLookup) *Handler {
	return &Handler{Svc: svc, Roles: roles}
}

// RegisterRoutes attaches analysis routes. start runs extra middleware
// (rate limiting) ahead of the analyze handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, start ...gin.HandlerFunc) {
	rg.POST("/documents/:id/analyze", append(start, h.startAnalysis)...)
	rg.GET("/documents/:id/analysis", h.getAnalysis)
}

type startRequest struct {
	Role string `json:"role"`
	Mode string `json:"mode"`
}

func (h *Handler) startAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)

	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}

	rawRole := req.Role
	if rawRole == "" && h.Roles != nil && !middleware.IsGuest(c) {
		preferred, err := h.Roles.PreferredRole(c.Request.Context(), userID)
		if err != nil {
			telemetry.Warn("analysis.preferred_role_lookup_failed", map[string]any{"user_id": userID, "error": err})
		}
		rawRole = preferred
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), []map[string]string{
			{"field": "role", "issue": "must be layperson, lawStudent or lawyer"},
		})
		return
	}

	result, err := h.Svc.Start(c.Request.Context(), StartRequest{
		UserID:     userID,
		DocumentID: documentID,
		Role:       role,
		Mode:       Mode(req.Mode),
	})
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		case errors.Is(err, ErrAnalysisInProgress):
			respond.Error(c, http.StatusConflict, respond.CodeAnalysisInProgress, "analysis already running for this document", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to start analysis", nil)
		}
		return
	}

	respond.Accepted(c, result)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)

	doc, err := h.Svc.Docs.GetByID(c.Request.Context(), userID, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to fetch analysis", nil)
		return
	}

	respond.OK(c, gin.H{
		"documentId": doc.ID,
		"status":     h.Svc.Status(doc.ID, doc.Analysis),
		"analysis":   documents.ToAnalysisResponse(doc.Analysis),
	})
}
