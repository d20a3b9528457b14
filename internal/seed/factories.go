// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"stride/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db *gorm.DB
	r  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

var tiers = []models.SubscriptionTier{
	models.TierFree, models.TierFree, models.TierFree,
	models.TierPlus, models.TierPlus,
	models.TierPro,
}

// CreateUser constructs and persists a sample user. All seed users share
// the password "password123".
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		Username:         fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		Email:            gofakeit.Email(),
		PasswordHash:     string(hashedPassword),
		DisplayName:      gofakeit.Name(),
		Bio:              gofakeit.Sentence(10),
		AvatarURL:        fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Tier:             tiers[f.r.Intn(len(tiers))],
		InvitesRemaining: 5,
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

type goalTemplate struct {
	title  string
	typ    models.GoalType
	target int64
	effort int
}

var goalTemplates = []goalTemplate{
	{"Read %d books this year", models.GoalTypeCount, 24, 0},
	{"Run %d kilometers", models.GoalTypeCount, 500, 0},
	{"Do %d pushups", models.GoalTypeCount, 10000, 0},
	{"Write %d blog posts", models.GoalTypeCount, 12, 0},
	{"Save $%d for a trip", models.GoalTypeCurrency, 3000, 0},
	{"Build an emergency fund of $%d", models.GoalTypeCurrency, 10000, 0},
	{"Pay off $%d of debt", models.GoalTypeCurrency, 5000, 0},
	{"Learn to play the guitar", models.GoalTypeMilestone, 0, 30},
	{"Ship a side project", models.GoalTypeMilestone, 0, 20},
	{"Get a scuba certification", models.GoalTypeMilestone, 0, 10},
}

// CreateGoal constructs and persists a goal for the given user, picked
// from a template pool so titles look plausible per type.
func (f *Factory) CreateGoal(user *models.User, overrides ...func(*models.Goal)) (*models.Goal, error) {
	tpl := goalTemplates[f.r.Intn(len(goalTemplates))]

	goal := &models.Goal{
		UserID:      user.ID,
		Description: gofakeit.Sentence(12),
		Type:        tpl.typ,
		Status:      models.GoalStatusActive,
		Visibility:  models.VisibilityPublic,
	}

	switch tpl.typ {
	case models.GoalTypeCount:
		target := tpl.target
		goal.Title = fmt.Sprintf(tpl.title, target)
		goal.TargetValue = &target
	case models.GoalTypeCurrency:
		// Currency goals store cents.
		target := tpl.target * 100
		goal.Title = fmt.Sprintf(tpl.title, tpl.target)
		goal.TargetValue = &target
	case models.GoalTypeMilestone:
		goal.Title = tpl.title
		if tpl.effort > 0 {
			effort := tpl.effort
			goal.EffortTarget = &effort
		}
	}

	// Spread creation over the last 90 days.
	goal.CreatedAt = time.Now().Add(-time.Duration(f.r.Intn(90*24)) * time.Hour)

	for _, override := range overrides {
		override(goal)
	}

	if err := f.db.Create(goal).Error; err != nil {
		return nil, err
	}

	// Every goal starts its timeline with the announcement post.
	announcement := &models.Post{
		UserID:    goal.UserID,
		GoalID:    goal.ID,
		Type:      models.PostTypeGoalCreated,
		Content:   fmt.Sprintf("Started a new goal: %s", goal.Title),
		CreatedAt: goal.CreatedAt,
	}
	if err := f.db.Create(announcement).Error; err != nil {
		return nil, err
	}

	return goal, nil
}

// CreateProgressPost persists a progress update on a goal and advances the
// goal's current value when the goal has a numeric target.
func (f *Factory) CreateProgressPost(goal *models.Goal, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		UserID:    goal.UserID,
		GoalID:    goal.ID,
		Type:      models.PostTypeProgress,
		Content:   gofakeit.Sentence(8 + f.r.Intn(10)),
		CreatedAt: goal.CreatedAt.Add(time.Duration(1+f.r.Intn(72)) * time.Hour),
	}

	if goal.HasNumericTarget() && goal.TargetValue != nil {
		// Keep deltas small enough that most seed goals stay active.
		delta := 1 + f.r.Int63n(*goal.TargetValue/10+1)
		post.ProgressValue = &delta
	}

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}

	if post.ProgressValue != nil {
		err := f.db.Model(&models.Goal{}).
			Where("id = ?", goal.ID).
			UpdateColumn("current_value", gorm.Expr("current_value + ?", *post.ProgressValue)).Error
		if err != nil {
			return nil, err
		}
		goal.CurrentValue += *post.ProgressValue
	}

	return post, nil
}

// CreateComment persists a comment on a post, optionally under a parent.
func (f *Factory) CreateComment(user *models.User, post *models.Post, parent *models.Comment) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:    post.ID,
		UserID:    user.ID,
		Content:   gofakeit.Sentence(5 + f.r.Intn(15)),
		CreatedAt: post.CreatedAt.Add(time.Duration(1+f.r.Intn(600)) * time.Minute),
	}
	if parent != nil {
		comment.ParentCommentID = &parent.ID
		if comment.CreatedAt.Before(parent.CreatedAt) {
			comment.CreatedAt = parent.CreatedAt.Add(time.Duration(1+f.r.Intn(120)) * time.Minute)
		}
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}
