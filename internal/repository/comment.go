// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"stride/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	// ListByPost returns every comment on a post in chronological order,
	// which is the sibling order the thread builder relies on.
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	CountReplies(ctx context.Context, commentID uint) (int64, error)
	// UpdateContentIfChildless applies the edit only while the comment still
	// has no replies. Returns false when a reply arrived first.
	UpdateContentIfChildless(ctx context.Context, commentID uint, content string, editedAt time.Time) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, notFoundOrStore(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at asc, id asc").
		Find(&comments).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return comments, nil
}

func (r *commentRepository) CountReplies(ctx context.Context, commentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("parent_comment_id = ?", commentID).
		Count(&count).Error
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}

func (r *commentRepository) UpdateContentIfChildless(ctx context.Context, commentID uint, content string, editedAt time.Time) (bool, error) {
	// The NOT EXISTS guard and the update run as one statement, so a reply
	// committed between the service's check and this write still blocks the edit.
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ? AND NOT EXISTS (SELECT 1 FROM comments r WHERE r.parent_comment_id = ?)", commentID, commentID).
		Updates(map[string]any{
			"content":   content,
			"edited_at": editedAt,
		})
	if res.Error != nil {
		return false, storeErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Comment{}, id).Error; err != nil {
		return storeErr(err)
	}
	return nil
}
