// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// GoalType classifies how a goal measures progress.
type GoalType string

const (
	// GoalTypeCount tracks a plain number of repetitions.
	GoalTypeCount GoalType = "count"
	// GoalTypeCurrency tracks an amount of money, stored in cents.
	GoalTypeCurrency GoalType = "currency"
	// GoalTypeMilestone has no numeric target; completion is always explicit.
	GoalTypeMilestone GoalType = "milestone"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	// GoalStatusActive is the initial state.
	GoalStatusActive GoalStatus = "active"
	// GoalStatusCompleted is terminal; the transition is irreversible.
	GoalStatusCompleted GoalStatus = "completed"
)

// GoalVisibility controls who can see a goal and its posts.
type GoalVisibility string

const (
	// VisibilityPublic makes the goal visible to everyone.
	VisibilityPublic GoalVisibility = "public"
	// VisibilityFollowers restricts the goal to the owner's followers.
	VisibilityFollowers GoalVisibility = "followers"
	// VisibilityPrivate restricts the goal to its owner.
	VisibilityPrivate GoalVisibility = "private"
)

// Goal represents a trackable goal owned by a user.
//
// CurrentValue is monotonic non-decreasing; it only grows through progress
// posts. Currency goals store values in cents.
type Goal struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	User         User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Type         GoalType       `gorm:"type:varchar(20);not null" json:"type"`
	CurrentValue int64          `gorm:"not null;default:0" json:"current_value"`
	TargetValue  *int64         `json:"target_value,omitempty"`
	EffortTarget *int           `json:"effort_target,omitempty"`
	Status       GoalStatus     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Visibility   GoalVisibility `gorm:"type:varchar(20);not null;default:'public'" json:"visibility"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasNumericTarget reports whether the goal type participates in
// automatic completion checks. Milestone goals never auto-complete.
func (g *Goal) HasNumericTarget() bool {
	return g.Type == GoalTypeCount || g.Type == GoalTypeCurrency
}

// TargetReached reports whether the accumulated value satisfies the target.
func (g *Goal) TargetReached() bool {
	return g.HasNumericTarget() && g.TargetValue != nil && g.CurrentValue >= *g.TargetValue
}
