package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/analyses"
	"lexease-backend/internal/shared/server/middleware"
	"lexease-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
	rg.PUT("/me/role", h.setRole)
}

func (h *Handler) me(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "login required", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		// Token is valid but the profile row is gone; answer from the claims.
		user = User{
			ID:            userID,
			Email:         middleware.UserEmailFromContext(c),
			Name:          middleware.UserNameFromContext(c),
			AvatarURL:     middleware.UserPictureFromContext(c),
			PreferredRole: defaultRole,
		}
	} else if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to load user", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{
		"id":            user.ID,
		"email":         user.Email,
		"name":          user.Name,
		"avatarUrl":     user.AvatarURL,
		"preferredRole": user.PreferredRole,
	})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) setRole(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "login required", nil)
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	role, err := h.Svc.SetPreferredRole(c.Request.Context(), middleware.UserIDFromContext(c), req.Role)
	if err != nil {
		switch {
		case errors.Is(err, analyses.ErrValidation):
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "user not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to save role", nil)
		}
		return
	}
	respond.OK(c, gin.H{"preferredRole": role})
}
