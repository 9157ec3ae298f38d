// Command seed fills the configured database with demo data.
package main

import (
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	messages := flag.Int("messages", defaults.MessagesPerUser, "Messages per user")
	follows := flag.Int("follows", defaults.FollowsPerUser, "Follows per user")
	likes := flag.Int("likes", defaults.LikesPerUser, "Likes per user")
	shouldClean := flag.Bool("clean", defaults.ShouldClean, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	randSeed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d messages/user, clean=%v", *numUsers, *messages, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.NewSeeder(db).Seed(seed.Options{
		NumUsers:        *numUsers,
		MessagesPerUser: *messages,
		FollowsPerUser:  *follows,
		LikesPerUser:    *likes,
		MaxDays:         defaults.MaxDays,
		ShouldClean:     *shouldClean,
		DryRun:          *dryRun,
		RandSeed:        *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d users, %d messages, %d follows, %d likes",
		res.Users, res.Messages, res.Follows, res.Likes)
	log.Printf("All seeded users have the password: %s", seed.DemoPassword)
}
