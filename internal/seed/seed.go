package seed

import (
	"fmt"
	"log"

	"warbler/internal/models"

	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	NumUsers        int
	MessagesPerUser int
	FollowsPerUser  int
	LikesPerUser    int
	MaxDays         int
	ShouldClean     bool
	DryRun          bool
	// FastHash hashes the demo password at the minimum bcrypt cost.
	FastHash bool
	RandSeed int64
}

// DefaultOptions is used by cmd/seed when no flags are given.
func DefaultOptions() Options {
	return Options{
		NumUsers:        50,
		MessagesPerUser: 10,
		FollowsPerUser:  8,
		LikesPerUser:    15,
		MaxDays:         30,
		ShouldClean:     true,
	}
}

// Result counts what a seeding run created.
type Result struct {
	Users    int
	Messages int
	Follows  int
	Likes    int
}

// Seeder fills a database with demo users, messages, follows and likes.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes every row of the application tables, children first.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Seed runs one seeding pass.
func (s *Seeder) Seed(opts Options) (*Result, error) {
	if opts.ShouldClean && !opts.DryRun {
		if err := s.ClearAll(); err != nil {
			return nil, err
		}
	}

	f, err := NewFactory(s.db, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	res.Users = len(users)
	log.Printf("%d users created", res.Users)

	msgs := make([]*models.Message, 0, len(users)*opts.MessagesPerUser)
	for _, u := range users {
		for j := 0; j < opts.MessagesPerUser; j++ {
			msgs = append(msgs, f.BuildMessage(u))
		}
	}
	if err := f.CreateMessagesBatch(msgs); err != nil {
		return nil, fmt.Errorf("create messages: %w", err)
	}
	res.Messages = len(msgs)
	log.Printf("%d messages created", res.Messages)

	if len(users) > 1 {
		for _, u := range users {
			for _, target := range f.pick(len(users), opts.FollowsPerUser) {
				if users[target].ID == u.ID {
					continue
				}
				if err := f.CreateFollow(u, users[target]); err != nil {
					return nil, fmt.Errorf("create follow: %w", err)
				}
				res.Follows++
			}
		}
	}
	log.Printf("%d follows created", res.Follows)

	if len(msgs) > 0 {
		for _, u := range users {
			for _, idx := range f.pick(len(msgs), opts.LikesPerUser) {
				if err := f.CreateLike(u, msgs[idx]); err != nil {
					return nil, fmt.Errorf("create like: %w", err)
				}
				res.Likes++
			}
		}
	}
	log.Printf("%d likes created", res.Likes)

	return res, nil
}

// pick returns up to k distinct indexes in [0, n).
func (f *Factory) pick(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	f.faker.ShuffleAnySlice(perm)
	return perm[:k]
}
