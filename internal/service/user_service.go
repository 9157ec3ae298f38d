package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ProfileMessageLimit caps the messages shown on a profile.
const ProfileMessageLimit = 100

type UserService struct {
	userRepo   repository.UserRepository
	msgRepo    repository.MessageRepository
	followRepo repository.FollowRepository
	likeRepo   repository.LikeRepository
	hasher     *PasswordHasher
}

// UpdateProfileInput carries the edit form. Empty Username and Email keep the
// current values; empty image URLs reset to the defaults.
type UpdateProfileInput struct {
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
	Password       string
}

func NewUserService(
	userRepo repository.UserRepository,
	msgRepo repository.MessageRepository,
	followRepo repository.FollowRepository,
	likeRepo repository.LikeRepository,
	hasher *PasswordHasher,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		msgRepo:    msgRepo,
		followRepo: followRepo,
		likeRepo:   likeRepo,
		hasher:     hasher,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// SearchUsers lists users whose username contains q, or everyone when q is empty.
func (s *UserService) SearchUsers(ctx context.Context, q string, limit, offset int) ([]models.User, error) {
	return s.userRepo.Search(ctx, q, limit, offset)
}

// Profile assembles the profile of userID as seen by viewerID (0 for anonymous).
// IsFollowing and IsFollowedBy relate the viewer to another user, so both stay
// false for anonymous viewers and on the viewer's own profile.
func (s *UserService) Profile(ctx context.Context, userID, viewerID uint) (profile *models.UserProfile, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Profile",
		attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile = &models.UserProfile{User: user}

	if profile.Messages, err = s.msgRepo.ListByUser(ctx, userID, ProfileMessageLimit); err != nil {
		return nil, err
	}
	if err = markLiked(ctx, s.likeRepo, viewerID, profile.Messages); err != nil {
		return nil, err
	}
	if profile.MessagesCount, err = s.msgRepo.CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	if profile.FollowingCount, err = s.followRepo.CountFollowing(ctx, userID); err != nil {
		return nil, err
	}
	if profile.FollowersCount, err = s.followRepo.CountFollowers(ctx, userID); err != nil {
		return nil, err
	}
	if profile.LikesCount, err = s.likeRepo.CountByUser(ctx, userID); err != nil {
		return nil, err
	}

	if viewerID != 0 && viewerID != userID {
		if profile.IsFollowing, err = s.followRepo.Exists(ctx, viewerID, userID); err != nil {
			return nil, err
		}
		if profile.IsFollowedBy, err = s.followRepo.Exists(ctx, userID, viewerID); err != nil {
			return nil, err
		}
	}

	return profile, nil
}

// LikedMessages returns the messages userID liked, flagged for viewerID.
func (s *UserService) LikedMessages(ctx context.Context, userID, viewerID uint) ([]models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	msgs, err := s.msgRepo.ListLikedBy(ctx, userID, ProfileMessageLimit)
	if err != nil {
		return nil, err
	}
	if err := markLiked(ctx, s.likeRepo, viewerID, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// UpdateProfile verifies in.Password against the stored hash and only then
// applies the other fields. A wrong password writes nothing.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "UpdateProfile",
		attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	hash, err := s.userRepo.GetPasswordHash(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Matches(hash, in.Password) {
		return nil, models.NewInvalidCredentialsError("Incorrect password. Profile not updated.")
	}

	user, err = s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := *user
	if in.Username != "" {
		updated.Username = in.Username
	}
	if in.Email != "" {
		updated.Email = in.Email
	}
	updated.ImageURL = in.ImageURL
	updated.HeaderImageURL = in.HeaderImageURL
	updated.Bio = in.Bio
	updated.Location = in.Location

	if err := s.userRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteAccount removes the user and everything they own.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "DeleteAccount",
		attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	return s.userRepo.Delete(ctx, userID)
}

// markLiked sets Liked on each message viewerID has liked.
func markLiked(ctx context.Context, likeRepo repository.LikeRepository, viewerID uint, msgs []models.Message) error {
	if viewerID == 0 || len(msgs) == 0 {
		return nil
	}
	ids := make([]uint, len(msgs))
	for i := range msgs {
		ids[i] = msgs[i].ID
	}
	liked, err := likeRepo.LikedMessageIDs(ctx, viewerID, ids)
	if err != nil {
		return err
	}
	set := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		set[id] = struct{}{}
	}
	for i := range msgs {
		_, msgs[i].Liked = set[msgs[i].ID]
	}
	return nil
}
