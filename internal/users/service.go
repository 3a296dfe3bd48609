package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lexease-backend/internal/analyses"
)

var defaultRole = string(analyses.DefaultRole)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the identity from a completed OAuth login.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return errors.New("user id and email are required")
	}
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// PreferredRole returns the saved audience role, or "" for unknown users.
func (s *Service) PreferredRole(ctx context.Context, userID string) (string, error) {
	user, err := s.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.PreferredRole, nil
}

// SetPreferredRole validates and stores the user's default audience role.
func (s *Service) SetPreferredRole(ctx context.Context, userID, raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: role is required", analyses.ErrValidation)
	}
	role, err := analyses.ParseRole(raw)
	if err != nil {
		return "", err
	}
	if err := s.Repo.SetPreferredRole(ctx, userID, string(role)); err != nil {
		return "", err
	}
	return string(role), nil
}
