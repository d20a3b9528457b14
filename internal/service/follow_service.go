package service

import (
	"context"

	"stride/internal/cache"
	"stride/internal/models"
	"stride/internal/ratelimit"
	"stride/internal/repository"
)

// FollowService manages the directed follow graph. Mutuality is never
// stored; it is derived from the two directed edges at read time.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	limiter    ratelimit.Admitter
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	limiter ratelimit.Admitter,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		limiter:    limiter,
	}
}

// Follow inserts the follower -> target edge. Following yourself is a
// validation failure; following twice is a conflict.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID uint) error {
	if followerID == targetID {
		return models.NewValidationError("You cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}

	if res := s.limiter.Admit(ctx, followerID, "follow"); !res.Allowed {
		return models.NewRateLimitedError(res.RetryAfter)
	}

	if err := s.followRepo.Create(ctx, &models.Follow{
		FollowerID:  followerID,
		FollowingID: targetID,
	}); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, targetID)
	cache.InvalidateUser(ctx, followerID)
	return nil
}

// Unfollow removes the edge. Unfollowing someone you do not follow is a
// no-op success.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID uint) error {
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return err
	}
	existed, err := s.followRepo.Delete(ctx, followerID, targetID)
	if err != nil {
		return err
	}
	if existed {
		cache.InvalidateUser(ctx, targetID)
		cache.InvalidateUser(ctx, followerID)
	}
	return nil
}

// Status derives the relationship between the viewer and the target from
// two edge existence checks. Mutual requires both edges, so removing
// either one flips it immediately.
func (s *FollowService) Status(ctx context.Context, viewerID, targetID uint) (*models.FollowStatus, error) {
	if _, err := s.userRepo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}

	isFollowing, err := s.followRepo.Exists(ctx, viewerID, targetID)
	if err != nil {
		return nil, err
	}
	isFollowedBy, err := s.followRepo.Exists(ctx, targetID, viewerID)
	if err != nil {
		return nil, err
	}

	return &models.FollowStatus{
		IsFollowing:  isFollowing,
		IsFollowedBy: isFollowedBy,
		IsMutual:     isFollowing && isFollowedBy,
	}, nil
}

// Counts returns follower and following totals as aggregate counts over
// the edge set.
func (s *FollowService) Counts(ctx context.Context, userID uint) (followers, following int64, err error) {
	followers, err = s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	following, err = s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}

func (s *FollowService) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]*models.User, error) {
	return s.followRepo.ListFollowers(ctx, userID, limit, offset)
}

func (s *FollowService) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]*models.User, error) {
	return s.followRepo.ListFollowing(ctx, userID, limit, offset)
}
