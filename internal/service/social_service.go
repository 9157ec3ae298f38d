package service

import (
	"context"
	"log/slog"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// SocialService manages who follows whom.
type SocialService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewSocialService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *SocialService {
	return &SocialService{followRepo: followRepo, userRepo: userRepo}
}

// Follow makes userID follow targetID. Following twice is a no-op.
func (s *SocialService) Follow(ctx context.Context, userID, targetID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialService", "Follow",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("target.id", int64(targetID)))
	defer func() { observability.EndSpan(span, err) }()

	if userID == targetID {
		middleware.Logger.InfoContext(ctx, "self-follow rejected",
			slog.Uint64("user_id", uint64(userID)))
		return models.NewValidationError("You cannot follow yourself.")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	if err := s.followRepo.Create(ctx, userID, targetID); err != nil {
		return err
	}
	observability.SocialActions.WithLabelValues("follow").Inc()
	return nil
}

// Unfollow removes the edge userID -> targetID if it exists.
func (s *SocialService) Unfollow(ctx context.Context, userID, targetID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SocialService", "Unfollow",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("target.id", int64(targetID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := s.followRepo.Delete(ctx, userID, targetID); err != nil {
		return err
	}
	observability.SocialActions.WithLabelValues("unfollow").Inc()
	return nil
}

// IsFollowing reports whether userID follows otherID.
func (s *SocialService) IsFollowing(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.Exists(ctx, userID, otherID)
}

// IsFollowedBy reports whether otherID follows userID.
func (s *SocialService) IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.Exists(ctx, otherID, userID)
}

func (s *SocialService) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.followRepo.FollowingIDs(ctx, userID)
}

// Following lists the users userID follows. userID must exist.
func (s *SocialService) Following(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.ListFollowing(ctx, userID)
}

// Followers lists the users following userID. userID must exist.
func (s *SocialService) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.followRepo.ListFollowers(ctx, userID)
}
