// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"stride/internal/models"

	"gorm.io/gorm"
)

// KudoRepository defines the interface for kudoz data operations
type KudoRepository interface {
	// Give adds the (user, post) pair; giving twice is a no-op.
	Give(ctx context.Context, userID, postID uint) error
	// Remove deletes the pair; removing an absent kudo is a no-op.
	Remove(ctx context.Context, userID, postID uint) error
	Exists(ctx context.Context, userID, postID uint) (bool, error)
	Count(ctx context.Context, postID uint) (int64, error)
}

type kudoRepository struct {
	db *gorm.DB
}

// NewKudoRepository creates a new KudoRepository
func NewKudoRepository(db *gorm.DB) KudoRepository {
	return &kudoRepository{db: db}
}

func (r *kudoRepository) Give(ctx context.Context, userID, postID uint) error {
	kudo := models.Kudo{UserID: userID, PostID: postID}
	if err := r.db.WithContext(ctx).Create(&kudo).Error; err != nil {
		// The unique pair index turns a duplicate into set membership.
		if isUniqueViolation(err) {
			return nil
		}
		return storeErr(err)
	}
	return nil
}

func (r *kudoRepository) Remove(ctx context.Context, userID, postID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Kudo{}).Error
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *kudoRepository) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Kudo{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	if err != nil {
		return false, storeErr(err)
	}
	return count > 0, nil
}

func (r *kudoRepository) Count(ctx context.Context, postID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Kudo{}).
		Where("post_id = ?", postID).
		Count(&count).Error
	if err != nil {
		return 0, storeErr(err)
	}
	return count, nil
}
