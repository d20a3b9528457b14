// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"stride/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	// List returns the public feed, newest first.
	List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error)
	ListByGoal(ctx context.Context, goalID uint, currentUserID uint) ([]*models.Post, error)
	CountByGoalAndType(ctx context.Context, goalID uint, postType models.PostType) (int64, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	GetKudoedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withComputed selects posts plus the derived engagement columns. Counts are
// always the cardinality of the underlying sets; nothing is stored.
func (r *postRepository) withComputed(ctx context.Context, currentUserID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Select(`posts.*,
			(SELECT COUNT(*) FROM kudoz WHERE kudoz.post_id = posts.id) AS kudoz_count,
			(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count,
			EXISTS(SELECT 1 FROM kudoz WHERE kudoz.post_id = posts.id AND kudoz.user_id = ?) AS kudoed`,
			currentUserID)
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	var post models.Post
	if err := r.withComputed(ctx, currentUserID).
		Preload("User").
		Where("posts.id = ?", id).
		First(&post).Error; err != nil {
		return nil, notFoundOrStore(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withComputed(ctx, currentUserID).
		Preload("User").
		Joins("JOIN goals ON goals.id = posts.goal_id AND goals.deleted_at IS NULL").
		Where("goals.visibility = ?", models.VisibilityPublic).
		Order("posts.created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return posts, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	q := r.withComputed(ctx, currentUserID).
		Preload("User").
		Joins("JOIN goals ON goals.id = posts.goal_id AND goals.deleted_at IS NULL").
		Where("posts.user_id = ?", userID)
	// Owners see their whole timeline; everyone else only posts on
	// public goals.
	if currentUserID != userID {
		q = q.Where("goals.visibility = ?", models.VisibilityPublic)
	}
	err := q.
		Order("posts.created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return posts, nil
}

func (r *postRepository) ListByGoal(ctx context.Context, goalID uint, currentUserID uint) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.withComputed(ctx, currentUserID).
		Preload("User").
		Where("posts.goal_id = ?", goalID).
		Order("posts.created_at asc").
		Find(&posts).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return posts, nil
}

func (r *postRepository) CountByGoalAndType(ctx context.Context, goalID uint, postType models.PostType) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("goal_id = ? AND type = ?", goalID, postType).
		Count(&count).Error
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Post{}, id).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *postRepository) GetKudoedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Kudo{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return ids, nil
}
