package account

import (
	"context"
	"errors"
	"strings"

	"lexease-backend/internal/shared/telemetry"
)

// DocumentClaimer reassigns guest-owned documents.
type DocumentClaimer interface {
	ClaimGuest(ctx context.Context, guestUserID, userID string) (int, error)
}

type Service struct {
	Docs DocumentClaimer
}

type ClaimResult struct {
	MigratedDocuments int `json:"migratedDocuments"`
}

func NewService(docs DocumentClaimer) *Service {
	return &Service{Docs: docs}
}

// ClaimGuest moves a guest's documents, with their analyses and chat
// history, to the signed-in user.
func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}
	n, err := s.Docs.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, err
	}
	telemetry.Info("account.guest_claimed", map[string]any{
		"user_id":            authedUserID,
		"migrated_documents": n,
	})
	return ClaimResult{MigratedDocuments: n}, nil
}
