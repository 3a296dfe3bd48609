package account

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

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
	rg.POST("/account/claim-guest", h.claimGuest)
}

type claimRequest struct {
	GuestID string `json:"guestId"`
}

// claimGuest moves the caller's earlier guest session onto their account.
// The guest id comes from X-Guest-Id, or from the body when the client has
// already switched to bearer auth and dropped the header.
func (h *Handler) claimGuest(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "service unavailable", nil)
		return
	}
	userID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if middleware.IsGuest(c) || userID == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "login required", nil)
		return
	}

	guestID, err := guestIDFromRequest(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), []map[string]string{
			{"field": "guestId", "issue": err.Error()},
		})
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), "guest:"+guestID, userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeStorage, "failed to claim guest documents", nil)
		return
	}
	respond.OK(c, result)
}

func guestIDFromRequest(c *gin.Context) (string, error) {
	guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
	if guestID == "" {
		var req claimRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", errors.New("invalid request body")
		}
		guestID = strings.TrimSpace(req.GuestID)
	}
	if guestID == "" {
		return "", errors.New("required")
	}
	if _, err := uuid.Parse(guestID); err != nil {
		return "", errors.New("invalid guest id")
	}
	return guestID, nil
}
