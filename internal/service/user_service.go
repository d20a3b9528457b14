package service

import (
	"context"

	"stride/internal/cache"
	"stride/internal/models"
	"stride/internal/repository"

	"github.com/google/uuid"
)

// UserService provides profile and invite business logic. Credential
// handling lives in the auth handlers.
type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	moderation *ModerationService
}

type UpdateProfileInput struct {
	UserID      uint
	DisplayName string
	Bio         *string
	AvatarURL   string
}

func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	moderation *ModerationService,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		followRepo: followRepo,
		moderation: moderation,
	}
}

// GetProfile returns the user with follower and following counts filled
// in. The counts are aggregates over the follow edges, never stored.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FollowerCount, err = s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.FollowingCount, err = s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	const maxBioLen = 500
	const maxDisplayNameLen = 50

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != "" {
		if len(in.DisplayName) > maxDisplayNameLen {
			return nil, models.NewValidationError("Display name too long (max 50 characters)")
		}
		if err := s.moderation.ValidateContent(in.DisplayName); err != nil {
			return nil, err
		}
		user.DisplayName = in.DisplayName
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		if err := s.moderation.ValidateContent(*in.Bio); err != nil {
			return nil, err
		}
		user.Bio = *in.Bio
	}
	if in.AvatarURL != "" {
		user.AvatarURL = in.AvatarURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, user.ID)

	return user, nil
}

// CreateInvite consumes one invite slot and issues an opaque invite code.
// An exhausted allotment is a validation failure, not a conflict.
func (s *UserService) CreateInvite(ctx context.Context, userID uint) (code string, remaining int, err error) {
	ok, err := s.userRepo.ConsumeInvite(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	if !ok {
		return "", 0, models.NewValidationError("No invites remaining")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	cache.InvalidateUser(ctx, userID)

	return uuid.New().String(), user.InvitesRemaining, nil
}

// SetAdmin toggles the admin flag on a user.
func (s *UserService) SetAdmin(ctx context.Context, targetID uint, isAdmin bool) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	user.IsAdmin = isAdmin
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, targetID)

	return user, nil
}

// IsAdmin is the injected admin check used by the other services.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin, nil
}
