package repository

import (
	"context"
	"testing"
	"time"

	"stride/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every connection to ":memory:" is its own database, so pin the pool
	// to a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Goal{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
		&models.Kudo{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:         username,
		Email:            username + "@example.com",
		PasswordHash:     "hashed",
		Tier:             models.TierPlus,
		InvitesRemaining: 5,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedGoal(t *testing.T, db *gorm.DB, userID uint, target int64) *models.Goal {
	t.Helper()
	goal := &models.Goal{
		UserID:      userID,
		Title:       "Run 100 miles",
		Type:        models.GoalTypeCount,
		TargetValue: &target,
		Status:      models.GoalStatusActive,
		Visibility:  models.VisibilityPublic,
	}
	require.NoError(t, db.Create(goal).Error)
	return goal
}

func seedPost(t *testing.T, db *gorm.DB, userID, goalID uint, postType models.PostType) *models.Post {
	t.Helper()
	post := &models.Post{
		UserID:  userID,
		GoalID:  goalID,
		Type:    postType,
		Content: "update",
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestUserRepository_Create_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")

	err := repo.Create(ctx, &models.User{
		Username:     "alice",
		Email:        "other@example.com",
		PasswordHash: "hashed",
	})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestUserRepository_ConsumeInvite(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	require.NoError(t, db.Model(user).UpdateColumn("invites_remaining", 2).Error)

	for i := 0; i < 2; i++ {
		ok, err := repo.ConsumeInvite(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	// Allotment exhausted; the guarded decrement must refuse.
	ok, err := repo.ConsumeInvite(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	refreshed, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, refreshed.InvitesRemaining)
}

func TestGoalRepository_IncrementProgress(t *testing.T) {
	db := newTestDB(t)
	repo := NewGoalRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	goal := seedGoal(t, db, user.ID, 100)

	updated, err := repo.IncrementProgress(ctx, goal.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), updated.CurrentValue)

	updated, err = repo.IncrementProgress(ctx, goal.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(100), updated.CurrentValue)
	assert.True(t, updated.TargetReached())
}

func TestGoalRepository_IncrementProgress_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewGoalRepository(db)

	_, err := repo.IncrementProgress(context.Background(), 999, 10)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestGoalRepository_CompleteIfActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewGoalRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	goal := seedGoal(t, db, user.ID, 100)
	completedAt := time.Now().UTC()

	won, err := repo.CompleteIfActive(ctx, goal.ID, completedAt)
	require.NoError(t, err)
	assert.True(t, won)

	// Second attempt loses; completion is a one-way transition.
	won, err = repo.CompleteIfActive(ctx, goal.ID, completedAt)
	require.NoError(t, err)
	assert.False(t, won)

	refreshed, err := repo.GetByID(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GoalStatusCompleted, refreshed.Status)
	require.NotNil(t, refreshed.CompletedAt)
}

func TestGoalRepository_DeleteCascade(t *testing.T) {
	db := newTestDB(t)
	repo := NewGoalRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	goal := seedGoal(t, db, user.ID, 100)
	post := seedPost(t, db, user.ID, goal.ID, models.PostTypeProgress)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: user.ID, Content: "nice"}).Error)
	require.NoError(t, db.Create(&models.Kudo{UserID: user.ID, PostID: post.ID}).Error)

	require.NoError(t, repo.DeleteCascade(ctx, goal.ID))

	_, err := repo.GetByID(ctx, goal.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	var comments, kudoz int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments).Error)
	require.NoError(t, db.Model(&models.Kudo{}).Where("post_id = ?", post.ID).Count(&kudoz).Error)
	assert.Zero(t, comments)
	assert.Zero(t, kudoz)

	var posts int64
	require.NoError(t, db.Unscoped().Model(&models.Post{}).Where("goal_id = ? AND deleted_at IS NULL", goal.ID).Count(&posts).Error)
	assert.Zero(t, posts)
}

func TestPostRepository_ComputedColumns(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	goal := seedGoal(t, db, alice.ID, 100)
	post := seedPost(t, db, alice.ID, goal.ID, models.PostTypeProgress)

	require.NoError(t, db.Create(&models.Kudo{UserID: bob.ID, PostID: post.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: bob.ID, Content: "keep going"}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: alice.ID, Content: "thanks"}).Error)

	got, err := repo.GetByID(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.KudozCount)
	assert.Equal(t, int64(2), got.CommentsCount)
	assert.True(t, got.Kudoed)

	// Same post viewed by a user who has not given kudoz.
	got, err = repo.GetByID(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.Kudoed)
}

func TestPostRepository_List_PublicOnly(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	public := seedGoal(t, db, alice.ID, 100)

	target := int64(50)
	private := &models.Goal{
		UserID:      alice.ID,
		Title:       "Secret savings",
		Type:        models.GoalTypeCurrency,
		TargetValue: &target,
		Status:      models.GoalStatusActive,
		Visibility:  models.VisibilityPrivate,
	}
	require.NoError(t, db.Create(private).Error)

	visible := seedPost(t, db, alice.ID, public.ID, models.PostTypeProgress)
	seedPost(t, db, alice.ID, private.ID, models.PostTypeProgress)

	posts, err := repo.List(ctx, 20, 0, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, visible.ID, posts[0].ID)
}

func TestPostRepository_CountByGoalAndType(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	goal := seedGoal(t, db, user.ID, 100)
	seedPost(t, db, user.ID, goal.ID, models.PostTypeGoalCreated)
	seedPost(t, db, user.ID, goal.ID, models.PostTypeProgress)
	seedPost(t, db, user.ID, goal.ID, models.PostTypeProgress)

	count, err := repo.CountByGoalAndType(ctx, goal.ID, models.PostTypeProgress)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.CountByGoalAndType(ctx, goal.ID, models.PostTypeGoalCompleted)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommentRepository_UpdateContentIfChildless(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	goal := seedGoal(t, db, user.ID, 100)
	post := seedPost(t, db, user.ID, goal.ID, models.PostTypeProgress)

	parent := &models.Comment{PostID: post.ID, UserID: user.ID, Content: "original"}
	require.NoError(t, db.Create(parent).Error)

	now := time.Now().UTC()
	ok, err := repo.UpdateContentIfChildless(ctx, parent.ID, "edited", now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	require.NotNil(t, got.EditedAt)

	// A reply freezes the parent.
	reply := &models.Comment{PostID: post.ID, UserID: user.ID, ParentCommentID: &parent.ID, Content: "reply"}
	require.NoError(t, db.Create(reply).Error)

	ok, err = repo.UpdateContentIfChildless(ctx, parent.ID, "too late", now)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = repo.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
}

func TestCommentRepository_ListByPost_Chronological(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	goal := seedGoal(t, db, user.ID, 100)
	post := seedPost(t, db, user.ID, goal.ID, models.PostTypeProgress)

	base := time.Now().UTC().Add(-time.Hour)
	for i, content := range []string{"first", "second", "third"} {
		c := &models.Comment{PostID: post.ID, UserID: user.ID, Content: content}
		require.NoError(t, db.Create(c).Error)
		require.NoError(t, db.Model(c).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "second", comments[1].Content)
	assert.Equal(t, "third", comments[2].Content)
}

func TestFollowRepository_DuplicateAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	require.NoError(t, repo.Create(ctx, &models.Follow{FollowerID: alice.ID, FollowingID: bob.ID}))

	err := repo.Create(ctx, &models.Follow{FollowerID: alice.ID, FollowingID: bob.ID})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))

	existed, err := repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestFollowRepository_Counts(t *testing.T) {
	db := newTestDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	require.NoError(t, repo.Create(ctx, &models.Follow{FollowerID: bob.ID, FollowingID: alice.ID}))
	require.NoError(t, repo.Create(ctx, &models.Follow{FollowerID: carol.ID, FollowingID: alice.ID}))
	require.NoError(t, repo.Create(ctx, &models.Follow{FollowerID: alice.ID, FollowingID: bob.ID}))

	followers, err := repo.CountFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), followers)

	following, err := repo.CountFollowing(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), following)

	names := func(users []*models.User) []string {
		out := make([]string, len(users))
		for i, u := range users {
			out[i] = u.Username
		}
		return out
	}

	list, err := repo.ListFollowers(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, names(list))
}

func TestKudoRepository_Idempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewKudoRepository(db)
	ctx := context.Background()

	user := seedUser(t, db, "alice")
	goal := seedGoal(t, db, user.ID, 100)
	post := seedPost(t, db, user.ID, goal.ID, models.PostTypeProgress)

	require.NoError(t, repo.Give(ctx, user.ID, post.ID))
	require.NoError(t, repo.Give(ctx, user.ID, post.ID))

	count, err := repo.Count(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.Remove(ctx, user.ID, post.ID))
	require.NoError(t, repo.Remove(ctx, user.ID, post.ID))

	count, err = repo.Count(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	exists, err := repo.Exists(ctx, user.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
