// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Kudo is a (user, post) reaction pair. Membership is unique; displayed
// counts are always the cardinality of this set, never a stored counter.
type Kudo struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_kudo_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_kudo_pair;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Kudo) TableName() string {
	return "kudoz"
}
