// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionTier represents a user's subscription level.
type SubscriptionTier string

const (
	// TierFree is the default tier for new accounts.
	TierFree SubscriptionTier = "free"
	// TierPlus is the entry paid tier.
	TierPlus SubscriptionTier = "plus"
	// TierPro is the full paid tier.
	TierPro SubscriptionTier = "pro"
)

// User represents an account in the Stride application.
type User struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Username         string           `gorm:"uniqueIndex;not null" json:"username"`
	Email            string           `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string           `gorm:"not null" json:"-"`
	DisplayName      string           `json:"display_name"`
	Bio              string           `gorm:"type:text" json:"bio"`
	AvatarURL        string           `json:"avatar_url"`
	Tier             SubscriptionTier `gorm:"type:varchar(20);default:'free'" json:"tier"`
	InvitesRemaining int              `gorm:"default:5" json:"invites_remaining"`
	IsAdmin          bool             `gorm:"default:false" json:"is_admin"`
	// FollowerCount and FollowingCount are not persisted; computed at query time
	FollowerCount  int64          `gorm:"->" json:"follower_count"`
	FollowingCount int64          `gorm:"->" json:"following_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// CanComment reports whether the user's tier entitles them to comment.
func (u *User) CanComment() bool {
	return u.Tier == TierPlus || u.Tier == TierPro
}
