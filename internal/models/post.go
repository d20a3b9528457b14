// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// PostType classifies a post on a goal's timeline.
type PostType string

const (
	// PostTypeGoalCreated is emitted automatically when a goal is created.
	// There is exactly one per goal.
	PostTypeGoalCreated PostType = "goal_created"
	// PostTypeProgress is a user update, optionally carrying a progress value.
	PostTypeProgress PostType = "progress"
	// PostTypeGoalCompleted is emitted when a goal completes.
	// There is at most one per goal.
	PostTypeGoalCompleted PostType = "goal_completed"
)

// Post represents an entry on a goal's timeline.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	User          User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	GoalID        uint       `gorm:"not null;index" json:"goal_id"`
	Goal          *Goal      `gorm:"foreignKey:GoalID" json:"goal,omitempty"`
	Type          PostType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Content       string     `gorm:"type:text" json:"content"`
	ProgressValue *int64     `json:"progress_value,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	// KudozCount is not persisted; computed at query time from the kudoz set
	KudozCount int64 `gorm:"->" json:"kudoz_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int64 `gorm:"->" json:"comments_count"`
	// Kudoed indicates whether the current requesting user gave kudoz (computed)
	Kudoed    bool           `gorm:"->" json:"kudoed"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
