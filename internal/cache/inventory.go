package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix = "user:%d"
	GoalKeyPrefix = "goal:%d"
	PostKeyPrefix = "post:%d"
	FeedKey       = "feed:public"
)

const (
	UserTTL = 5 * time.Minute
	GoalTTL = 10 * time.Minute
	PostTTL = 10 * time.Minute
	FeedTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func GoalKey(goalID uint) string {
	return fmt.Sprintf(GoalKeyPrefix, goalID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateGoal(ctx context.Context, goalID uint) {
	Invalidate(ctx, GoalKey(goalID))
}

// InvalidatePost drops the post entry and the public feed, which embeds
// post rows with computed counts.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, FeedKey)
}
