package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"stride/internal/models"

	"gorm.io/gorm"
)

// Seeder orchestrates fixture creation for development databases.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	r       *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Seeder{
		db:      db,
		factory: NewFactory(db),
		r:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll truncates every seeded table.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE kudoz, comments, posts, follows, goals, users RESTART IDENTITY CASCADE;`
	return s.db.Exec(sql).Error
}

// SeedSocialMesh creates users with goals and a follow graph between them.
func (s *Seeder) SeedSocialMesh(numUsers int) ([]*models.User, error) {
	log.Printf("Seeding %d users...", numUsers)

	users := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)

		numGoals := 1 + s.r.Intn(3)
		for g := 0; g < numGoals; g++ {
			if _, err := s.factory.CreateGoal(user); err != nil {
				return nil, fmt.Errorf("create goal: %w", err)
			}
		}
	}

	// Each user follows a handful of others; some pairs end up mutual
	// naturally.
	for _, user := range users {
		numFollows := s.r.Intn(8)
		for i := 0; i < numFollows; i++ {
			target := users[s.r.Intn(len(users))]
			if target.ID == user.ID {
				continue
			}
			follow := &models.Follow{FollowerID: user.ID, FollowingID: target.ID}
			// Duplicate picks hit the unique pair index; skip them.
			_ = s.db.Create(follow).Error
		}
	}

	log.Printf("Seeded %d users with goals and follows", len(users))
	return users, nil
}

// SeedEngagement creates progress posts, comments, and kudoz across the
// seeded users' goals.
func (s *Seeder) SeedEngagement(users []*models.User, numPosts int) ([]*models.Post, error) {
	log.Printf("Seeding %d progress posts...", numPosts)

	var goals []*models.Goal
	if err := s.db.Where("status = ?", models.GoalStatusActive).Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, fmt.Errorf("no active goals to post against")
	}

	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		goal := goals[s.r.Intn(len(goals))]
		post, err := s.factory.CreateProgressPost(goal)
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, post)
	}

	// Comments: only paid-tier users comment; some threads get replies.
	var commenters []*models.User
	for _, u := range users {
		if u.CanComment() {
			commenters = append(commenters, u)
		}
	}
	if len(commenters) > 0 {
		for _, post := range posts {
			numComments := s.r.Intn(4)
			var parent *models.Comment
			for i := 0; i < numComments; i++ {
				author := commenters[s.r.Intn(len(commenters))]
				var replyTo *models.Comment
				if parent != nil && s.r.Intn(2) == 0 {
					replyTo = parent
				}
				comment, err := s.factory.CreateComment(author, post, replyTo)
				if err != nil {
					return nil, fmt.Errorf("create comment: %w", err)
				}
				if replyTo == nil {
					parent = comment
				}
			}
		}
	}

	// Kudoz: random user/post pairs; the unique index absorbs duplicates.
	for _, post := range posts {
		numKudoz := s.r.Intn(6)
		for i := 0; i < numKudoz; i++ {
			giver := users[s.r.Intn(len(users))]
			_ = s.db.Create(&models.Kudo{UserID: giver.ID, PostID: post.ID}).Error
		}
	}

	log.Printf("Seeded %d posts with comments and kudoz", len(posts))
	return posts, nil
}
