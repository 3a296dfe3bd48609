package qa

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/documents"
	"lexease-backend/internal/shared/server/middleware"
	"lexease-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches Q&A routes. ask runs ahead of every handler that
// calls the model.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, ask ...gin.HandlerFunc) {
	rg.POST("/documents/:id/messages", append(ask, h.askDocument)...)
	rg.GET("/documents/:id/messages", h.history)
	rg.POST("/qa", append(ask, h.askGeneral)...)
}

type askRequest struct {
	Question     string `json:"question"`
	DocumentText string `json:"documentText"`
}

func (h *Handler) askDocument(c *gin.Context) {
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	msg, err := h.Svc.AskDocument(c.Request.Context(), middleware.UserIDFromContext(c), documentID, req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"answer": msg.Content, "message": msg})
}

func (h *Handler) history(c *gin.Context) {
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "limit must be between 1 and 500", nil)
			return
		}
		limit = n
	}
	msgs, err := h.Svc.History(c.Request.Context(), middleware.UserIDFromContext(c), documentID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"documentId": documentID, "messages": msgs})
}

func (h *Handler) askGeneral(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	var (
		answer string
		err    error
	)
	if req.DocumentText != "" {
		answer, err = h.Svc.Ask(c.Request.Context(), req.DocumentText, req.Question)
	} else {
		answer, err = h.Svc.AskGeneral(c.Request.Context(), req.Question)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, gin.H{"answer": answer})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "document not found", nil)
	case errors.Is(err, documents.ErrPersistence):
		respond.Error(c, http.StatusInternalServerError, respond.CodeStorage, "failed to save conversation", nil)
	default:
		respond.Error(c, http.StatusBadGateway, respond.CodeGenerationFailed, "failed to generate an answer", nil)
	}
}
