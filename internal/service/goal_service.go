package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stride/internal/cache"
	"stride/internal/models"
	"stride/internal/observability"
	"stride/internal/ratelimit"
	"stride/internal/repository"
)

// GoalService owns the goal lifecycle: creation with the automatic
// goal_created post, progress accumulation, the single irreversible
// active -> completed transition, and aggregate deletion.
type GoalService struct {
	goalRepo   repository.GoalRepository
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	moderation *ModerationService
	limiter    ratelimit.Admitter
	isAdmin    func(ctx context.Context, userID uint) (bool, error)
	now        func() time.Time
}

type CreateGoalInput struct {
	UserID       uint
	Title        string
	Description  string
	Type         models.GoalType
	TargetValue  *int64
	EffortTarget *int
	Visibility   models.GoalVisibility
}

type UpdateGoalInput struct {
	UserID      uint
	GoalID      uint
	Title       string
	Description *string
	TargetValue *int64
	Visibility  models.GoalVisibility
}

func NewGoalService(
	goalRepo repository.GoalRepository,
	postRepo repository.PostRepository,
	followRepo repository.FollowRepository,
	moderation *ModerationService,
	limiter ratelimit.Admitter,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
	now func() time.Time,
) *GoalService {
	if now == nil {
		now = time.Now
	}
	return &GoalService{
		goalRepo:   goalRepo,
		postRepo:   postRepo,
		followRepo: followRepo,
		moderation: moderation,
		limiter:    limiter,
		isAdmin:    isAdmin,
		now:        now,
	}
}

func (s *GoalService) CreateGoal(ctx context.Context, in CreateGoalInput) (*models.Goal, error) {
	const maxTitleLen = 200

	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}

	switch in.Type {
	case models.GoalTypeCount, models.GoalTypeCurrency:
		if in.TargetValue == nil || *in.TargetValue <= 0 {
			return nil, models.NewValidationError("Target value must be a positive number")
		}
		if in.EffortTarget != nil {
			return nil, models.NewValidationError("Effort target only applies to milestone goals")
		}
	case models.GoalTypeMilestone:
		if in.TargetValue != nil {
			return nil, models.NewValidationError("Milestone goals have no target value")
		}
		if in.EffortTarget != nil && *in.EffortTarget <= 0 {
			return nil, models.NewValidationError("Effort target must be a positive number")
		}
	default:
		return nil, models.NewValidationError("Invalid goal type")
	}

	visibility := in.Visibility
	switch visibility {
	case "":
		visibility = models.VisibilityPublic
	case models.VisibilityPublic, models.VisibilityFollowers, models.VisibilityPrivate:
	default:
		return nil, models.NewValidationError("Invalid visibility")
	}

	if err := s.moderation.ValidateContent(in.Title + " " + in.Description); err != nil {
		return nil, err
	}

	if res := s.limiter.Admit(ctx, in.UserID, "goal"); !res.Allowed {
		return nil, models.NewRateLimitedError(res.RetryAfter)
	}

	goal := &models.Goal{
		UserID:       in.UserID,
		Title:        in.Title,
		Description:  in.Description,
		Type:         in.Type,
		TargetValue:  in.TargetValue,
		EffortTarget: in.EffortTarget,
		Status:       models.GoalStatusActive,
		Visibility:   visibility,
	}
	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}
	observability.GoalsCreated.WithLabelValues(string(goal.Type)).Inc()

	// The announcement post is best effort. A failure here must not roll
	// back the goal itself.
	post := &models.Post{
		UserID:  in.UserID,
		GoalID:  goal.ID,
		Type:    models.PostTypeGoalCreated,
		Content: fmt.Sprintf("Started a new goal: %s", goal.Title),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		slog.WarnContext(ctx, "goal created but announcement post failed",
			"goal_id", goal.ID, "err", err)
	} else {
		observability.PostsCreated.WithLabelValues(string(models.PostTypeGoalCreated)).Inc()
		cache.Invalidate(ctx, cache.FeedKey)
	}

	return goal, nil
}

// GetGoal fetches a goal, enforcing its visibility against the viewer.
// viewerID 0 means unauthenticated.
func (s *GoalService) GetGoal(ctx context.Context, goalID, viewerID uint) (*models.Goal, error) {
	goal, err := s.goalRepo.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID == viewerID {
		return goal, nil
	}

	switch goal.Visibility {
	case models.VisibilityPublic:
		return goal, nil
	case models.VisibilityFollowers:
		if viewerID == 0 {
			return nil, models.NewNotFoundError("Goal", goalID)
		}
		follows, err := s.followRepo.Exists(ctx, viewerID, goal.UserID)
		if err != nil {
			return nil, err
		}
		if follows {
			return goal, nil
		}
	}
	// Hidden goals read as absent rather than forbidden.
	return nil, models.NewNotFoundError("Goal", goalID)
}

func (s *GoalService) ListGoals(ctx context.Context, userID uint, limit, offset int) ([]*models.Goal, error) {
	return s.goalRepo.ListByUser(ctx, userID, limit, offset)
}

func (s *GoalService) UpdateGoal(ctx context.Context, in UpdateGoalInput) (*models.Goal, error) {
	goal, err := s.goalRepo.GetByID(ctx, in.GoalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own goals")
	}

	if in.Title != "" {
		if err := s.moderation.ValidateContent(in.Title); err != nil {
			return nil, err
		}
		goal.Title = in.Title
	}
	if in.Description != nil {
		if err := s.moderation.ValidateContent(*in.Description); err != nil {
			return nil, err
		}
		goal.Description = *in.Description
	}
	if in.TargetValue != nil {
		if !goal.HasNumericTarget() {
			return nil, models.NewValidationError("Milestone goals have no target value")
		}
		if goal.Status != models.GoalStatusActive {
			return nil, models.NewConflictError("Goal is already completed")
		}
		if *in.TargetValue <= 0 {
			return nil, models.NewValidationError("Target value must be a positive number")
		}
		goal.TargetValue = in.TargetValue
	}
	if in.Visibility != "" {
		switch in.Visibility {
		case models.VisibilityPublic, models.VisibilityFollowers, models.VisibilityPrivate:
			goal.Visibility = in.Visibility
		default:
			return nil, models.NewValidationError("Invalid visibility")
		}
	}

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		return nil, err
	}
	cache.InvalidateGoal(ctx, goal.ID)

	// Lowering the target may put the goal over the line.
	if goal.Status == models.GoalStatusActive && goal.TargetReached() {
		if _, err := s.completeAndAnnounce(ctx, goal, "auto"); err != nil {
			return nil, err
		}
		return s.goalRepo.GetByID(ctx, goal.ID)
	}

	return goal, nil
}

// ApplyProgress adds delta to the goal's accumulated value and re-checks
// automatic completion. The goal must still be active.
func (s *GoalService) ApplyProgress(ctx context.Context, goal *models.Goal, delta int64) (*models.Goal, error) {
	if delta <= 0 {
		return nil, models.NewValidationError("Progress value must be a positive number")
	}
	if goal.Status != models.GoalStatusActive {
		return nil, models.NewConflictError("Goal is already completed")
	}
	if goal.Type == models.GoalTypeMilestone {
		return nil, models.NewValidationError("Milestone goals do not track numeric progress")
	}

	updated, err := s.goalRepo.IncrementProgress(ctx, goal.ID, delta)
	if err != nil {
		return nil, err
	}
	cache.InvalidateGoal(ctx, goal.ID)

	if updated.TargetReached() {
		if _, err := s.completeAndAnnounce(ctx, updated, "auto"); err != nil {
			return nil, err
		}
		return s.goalRepo.GetByID(ctx, goal.ID)
	}
	return updated, nil
}

// CompleteGoal is the owner's explicit completion. Completing a goal twice
// is a conflict, and the goal_completed post is only ever emitted once.
func (s *GoalService) CompleteGoal(ctx context.Context, userID, goalID uint) (*models.Goal, error) {
	goal, err := s.goalRepo.GetByID(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != userID {
		return nil, models.NewUnauthorizedError("You can only complete your own goals")
	}

	won, err := s.completeAndAnnounce(ctx, goal, "manual")
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, models.NewConflictError("Goal is already completed")
	}
	return s.goalRepo.GetByID(ctx, goalID)
}

// completeAndAnnounce races the conditional update and, only on the winning
// call, emits the goal_completed post. Post failure is tolerated the same
// way as at creation.
func (s *GoalService) completeAndAnnounce(ctx context.Context, goal *models.Goal, trigger string) (bool, error) {
	won, err := s.goalRepo.CompleteIfActive(ctx, goal.ID, s.now().UTC())
	if err != nil {
		return false, err
	}
	if !won {
		return false, nil
	}

	observability.GoalsCompleted.WithLabelValues(trigger).Inc()
	cache.InvalidateGoal(ctx, goal.ID)

	post := &models.Post{
		UserID:  goal.UserID,
		GoalID:  goal.ID,
		Type:    models.PostTypeGoalCompleted,
		Content: fmt.Sprintf("Completed the goal: %s", goal.Title),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		slog.WarnContext(ctx, "goal completed but announcement post failed",
			"goal_id", goal.ID, "err", err)
	} else {
		observability.PostsCreated.WithLabelValues(string(models.PostTypeGoalCompleted)).Inc()
		cache.Invalidate(ctx, cache.FeedKey)
	}
	return true, nil
}

// DeleteGoal removes the goal and everything hanging off it. Admins may
// delete goals they do not own.
func (s *GoalService) DeleteGoal(ctx context.Context, userID, goalID uint) error {
	goal, err := s.goalRepo.GetByID(ctx, goalID)
	if err != nil {
		return err
	}
	if goal.UserID != userID {
		if s.isAdmin == nil {
			return models.NewUnauthorizedError("You can only delete your own goals")
		}
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewUnauthorizedError("You can only delete your own goals")
		}
	}

	if err := s.goalRepo.DeleteCascade(ctx, goalID); err != nil {
		return err
	}
	cache.InvalidateGoal(ctx, goalID)
	cache.Invalidate(ctx, cache.FeedKey)
	return nil
}
