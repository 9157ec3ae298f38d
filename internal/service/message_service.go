package service

import (
	"context"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultTimelineLimit is the number of messages on the home timeline.
const DefaultTimelineLimit = 100

type MessageService struct {
	msgRepo       repository.MessageRepository
	followRepo    repository.FollowRepository
	likeRepo      repository.LikeRepository
	timelineLimit int
}

func NewMessageService(
	msgRepo repository.MessageRepository,
	followRepo repository.FollowRepository,
	likeRepo repository.LikeRepository,
	timelineLimit int,
) *MessageService {
	if timelineLimit <= 0 {
		timelineLimit = DefaultTimelineLimit
	}
	return &MessageService{
		msgRepo:       msgRepo,
		followRepo:    followRepo,
		likeRepo:      likeRepo,
		timelineLimit: timelineLimit,
	}
}

// Create posts text as userID. text is expected to be validated already.
func (s *MessageService) Create(ctx context.Context, userID uint, text string) (msg *models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "Create",
		attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	msg = &models.Message{UserID: userID, Text: text}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	observability.MessagesCreated.Inc()
	return msg, nil
}

// Get returns the message with its author, flagged for viewerID.
func (s *MessageService) Get(ctx context.Context, id, viewerID uint) (*models.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	one := []models.Message{*msg}
	if err := markLiked(ctx, s.likeRepo, viewerID, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Delete removes message id if userID wrote it. Anyone else gets a forbidden error.
func (s *MessageService) Delete(ctx context.Context, userID, id uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "Delete",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("message.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	msg, err := s.msgRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !msg.IsOwnedBy(userID) {
		return models.NewForbiddenError("Access unauthorized.")
	}
	return s.msgRepo.Delete(ctx, id)
}

// HomeTimeline returns the newest messages by userID and everyone they follow.
func (s *MessageService) HomeTimeline(ctx context.Context, userID uint) (msgs []models.Message, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "HomeTimeline",
		attribute.Int64("user.id", int64(userID)))
	defer func() { observability.EndSpan(span, err) }()

	following, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	authors := append(following, userID)

	msgs, err = s.msgRepo.Timeline(ctx, authors, s.timelineLimit)
	if err != nil {
		return nil, err
	}
	if err := markLiked(ctx, s.likeRepo, userID, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// ToggleLike flips userID's like on message id and reports whether it is now liked.
func (s *MessageService) ToggleLike(ctx context.Context, userID, id uint) (liked bool, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "MessageService", "ToggleLike",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("message.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	if _, err := s.msgRepo.GetByID(ctx, id); err != nil {
		return false, err
	}
	liked, err = s.likeRepo.Toggle(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if liked {
		observability.SocialActions.WithLabelValues("like").Inc()
	} else {
		observability.SocialActions.WithLabelValues("unlike").Inc()
	}
	return liked, nil
}
