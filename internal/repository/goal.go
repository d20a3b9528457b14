// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"stride/internal/models"

	"gorm.io/gorm"
)

// GoalRepository defines the interface for goal data operations
type GoalRepository interface {
	Create(ctx context.Context, goal *models.Goal) error
	GetByID(ctx context.Context, id uint) (*models.Goal, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Goal, error)
	Update(ctx context.Context, goal *models.Goal) error
	// IncrementProgress adds delta to current_value in a single SQL update,
	// so concurrent progress posts cannot lose increments, and returns the
	// refreshed goal.
	IncrementProgress(ctx context.Context, goalID uint, delta int64) (*models.Goal, error)
	// CompleteIfActive performs the single irreversible active -> completed
	// transition. Returns false when the goal was already completed.
	CompleteIfActive(ctx context.Context, goalID uint, completedAt time.Time) (bool, error)
	// DeleteCascade removes the goal and, as aggregate root, its posts along
	// with their comments and kudoz, in one transaction.
	DeleteCascade(ctx context.Context, goalID uint) error
}

type goalRepository struct {
	db *gorm.DB
}

// NewGoalRepository creates a new GoalRepository
func NewGoalRepository(db *gorm.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(ctx context.Context, goal *models.Goal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *goalRepository) GetByID(ctx context.Context, id uint) (*models.Goal, error) {
	var goal models.Goal
	if err := r.db.WithContext(ctx).Preload("User").First(&goal, id).Error; err != nil {
		return nil, notFoundOrStore(err, "Goal", id)
	}
	return &goal, nil
}

func (r *goalRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Goal, error) {
	var goals []*models.Goal
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&goals).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return goals, nil
}

func (r *goalRepository) Update(ctx context.Context, goal *models.Goal) error {
	if err := r.db.WithContext(ctx).Save(goal).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *goalRepository) IncrementProgress(ctx context.Context, goalID uint, delta int64) (*models.Goal, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Goal{}).
		Where("id = ?", goalID).
		UpdateColumn("current_value", gorm.Expr("current_value + ?", delta))
	if res.Error != nil {
		return nil, storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("Goal", goalID)
	}
	return r.GetByID(ctx, goalID)
}

func (r *goalRepository) CompleteIfActive(ctx context.Context, goalID uint, completedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Goal{}).
		Where("id = ? AND status = ?", goalID, models.GoalStatusActive).
		Updates(map[string]any{
			"status":       models.GoalStatusCompleted,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return false, storeErr(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *goalRepository) DeleteCascade(ctx context.Context, goalID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var postIDs []uint
		if err := tx.Model(&models.Post{}).
			Where("goal_id = ?", goalID).
			Pluck("id", &postIDs).Error; err != nil {
			return err
		}

		if len(postIDs) > 0 {
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Kudo{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("goal_id = ?", goalID).Delete(&models.Post{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&models.Goal{}, goalID).Error
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}
