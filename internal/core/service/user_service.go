package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coursehub/registration-api/internal/core/domain"
	"github.com/coursehub/registration-api/internal/core/ports"
)

type UserService struct {
	repo   ports.UserRepository
	logger zerolog.Logger
}

var _ ports.UserService = (*UserService)(nil)

func NewUserService(repo ports.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// UpdateProfile overwrites the self-service fields. Empty username keeps the
// current one.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ports.ProfileInput) (*domain.User, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if name := strings.TrimSpace(in.Username); name != "" {
		u.Username = name
	}
	u.Phone = in.Phone
	u.Organization = in.Organization
	u.Address = in.Address
	u.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.logger.Info().Str("user_id", userID).Msg("profile updated")
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, filter ports.ListUsersFilter) (*ports.ListUsersResult, error) {
	filter.Page, filter.Limit = normalizePage(filter.Page, filter.Limit)
	filter.Search = strings.TrimSpace(filter.Search)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &ports.ListUsersResult{
		Items:   items,
		Total:   total,
		Page:    filter.Page,
		Limit:   filter.Limit,
		HasMore: int64(filter.Page*filter.Limit) < total,
	}, nil
}
