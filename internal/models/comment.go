// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// CommentEditWindow is how long after creation a comment stays editable.
const CommentEditWindow = 5 * time.Minute

// Comment represents a comment on a post. ParentCommentID is nil for
// top-level comments; replies reference their parent, at any depth.
type Comment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	User            User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ParentCommentID *uint      `gorm:"index" json:"parent_comment_id,omitempty"`
	Content         string     `gorm:"type:text;not null" json:"content"`
	EditedAt        *time.Time `json:"edited_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// WithinEditWindow reports whether the comment is still inside its edit
// window at the given instant. The zero-children condition is checked
// separately, against current store state.
func (c *Comment) WithinEditWindow(now time.Time) bool {
	return now.Sub(c.CreatedAt) < CommentEditWindow
}
