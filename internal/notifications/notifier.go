// Package notifications publishes per-user activity events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"warbler/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "notifications:user:"

// Event types.
const (
	EventFollowed     = "followed"
	EventMessageLiked = "message_liked"
)

// Event is the payload delivered on a user's channel.
type Event struct {
	Type          string    `json:"type"`
	ActorID       uint      `json:"actor_id"`
	ActorUsername string    `json:"actor_username"`
	MessageID     uint      `json:"message_id,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier provides helpers to publish notifications into Redis channels.
// A Notifier without a Redis client drops every event.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Notify publishes ev to userID's channel.
func (n *Notifier) Notify(ctx context.Context, userID uint, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// Followed tells followedID that actor started following them.
func (n *Notifier) Followed(ctx context.Context, followedID, actorID uint, actorUsername string) {
	if followedID == actorID {
		return
	}
	n.notifyLogged(ctx, followedID, Event{Type: EventFollowed, ActorID: actorID, ActorUsername: actorUsername})
}

// MessageLiked tells authorID that actor liked their message.
func (n *Notifier) MessageLiked(ctx context.Context, authorID, messageID, actorID uint, actorUsername string) {
	if authorID == actorID {
		return
	}
	n.notifyLogged(ctx, authorID, Event{
		Type:          EventMessageLiked,
		ActorID:       actorID,
		ActorUsername: actorUsername,
		MessageID:     messageID,
	})
}

func (n *Notifier) notifyLogged(ctx context.Context, userID uint, ev Event) {
	if err := n.Notify(ctx, userID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "publish notification failed",
			slog.String("type", ev.Type),
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()))
	}
}

// Subscribe listens on every user channel and calls onEvent for each event
// until ctx is done.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(userID uint, ev Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				userID, ok := parseUserChannel(msg.Channel)
				if !ok {
					continue
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					middleware.Logger.Warn("dropping malformed notification",
						slog.String("channel", msg.Channel), slog.String("error", err.Error()))
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification handler",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onEvent(userID, ev)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

func parseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
