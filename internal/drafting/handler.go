package drafting

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches drafting routes; draft middleware runs ahead of
// POST /drafts.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, draft ...gin.HandlerFunc) {
	rg.POST("/drafts", append(draft, h.createDraft)...)
	rg.GET("/templates", h.listTemplates)
}

func (h *Handler) createDraft(c *gin.Context) {
	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	draft, err := h.Svc.Draft(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		case errors.Is(err, ErrTemplateNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeTemplateNotFound, err.Error(), nil)
		case errors.Is(err, ErrGenerationFailed):
			respond.Error(c, http.StatusBadGateway, respond.CodeGenerationFailed, "failed to generate draft", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to generate draft", nil)
		}
		return
	}
	respond.OK(c, gin.H{"draftContent": draft})
}

func (h *Handler) listTemplates(c *gin.Context) {
	respond.OK(c, gin.H{"templates": h.Svc.ListTemplates(c.Request.Context())})
}
