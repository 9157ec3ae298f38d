// Package seed creates demo data for development databases and tests.
package seed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the plain-text password of every seeded user.
const DemoPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	hash  string
	// synthetic ID counter when running in DryRun mode
	nextID uint
	taken  map[string]struct{}
}

// NewFactory creates a Factory bound to db. A zero opts.RandSeed seeds from the clock.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	cost := bcrypt.DefaultCost
	if opts.FastHash {
		cost = bcrypt.MinCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(seed),
		hash:   string(hash),
		nextID: 1000,
		taken:  make(map[string]struct{}),
	}, nil
}

// BuildUser returns an unsaved user with a unique username.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	username := f.uniqueUsername()
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@%s", username, f.faker.DomainName()),
		Password: f.hash,
		ImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		Bio:      truncate(f.faker.Sentence(8), 140),
		Location: fmt.Sprintf("%s, %s", f.faker.City(), f.faker.StateAbr()),
	}
	user.ApplyImageDefaults()

	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildMessage returns an unsaved message by author, timestamped within the
// last opts.MaxDays days.
func (f *Factory) BuildMessage(author *models.User) *models.Message {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	now := time.Now().UTC()

	return &models.Message{
		Text:      truncate(f.faker.HackerPhrase(), models.MaxMessageLength),
		UserID:    author.ID,
		Timestamp: f.faker.DateRange(now.AddDate(0, 0, -maxDays), now),
	}
}

// CreateMessagesBatch persists msgs in one insert.
func (f *Factory) CreateMessagesBatch(msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, m := range msgs {
			f.nextID++
			m.ID = f.nextID
		}
		log.Printf("[dry-run] CreateMessagesBatch: %d messages (no DB write)", len(msgs))
		return nil
	}
	return f.db.Omit("User").CreateInBatches(msgs, 200).Error
}

// CreateFollow records that follower follows followed.
func (f *Factory) CreateFollow(follower, followed *models.User) error {
	if f.opts.DryRun {
		return nil
	}
	edge := &models.Follow{UserFollowingID: follower.ID, UserBeingFollowedID: followed.ID}
	return f.db.Omit("UserBeingFollowed", "UserFollowing").Create(edge).Error
}

// CreateLike records that user likes msg.
func (f *Factory) CreateLike(user *models.User, msg *models.Message) error {
	if f.opts.DryRun {
		return nil
	}
	like := &models.Like{UserID: user.ID, MessageID: msg.ID}
	return f.db.Omit("User", "Message").Create(like).Error
}

func (f *Factory) uniqueUsername() string {
	for {
		name := strings.ToLower(f.faker.Username())
		if len(name) > 40 {
			name = name[:40]
		}
		name = fmt.Sprintf("%s%d", name, f.faker.Number(10, 9999))
		if _, ok := f.taken[name]; ok {
			continue
		}
		f.taken[name] = struct{}{}
		return name
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
