package service

import (
	"context"

	"stride/internal/cache"
	"stride/internal/models"
	"stride/internal/observability"
	"stride/internal/ratelimit"
	"stride/internal/repository"
)

// PostService orchestrates progress posts and kudoz. Every mutating flow
// runs moderation before persistence and rate-limit admission before any
// quota-consuming side effect.
type PostService struct {
	postRepo   repository.PostRepository
	goalRepo   repository.GoalRepository
	kudoRepo   repository.KudoRepository
	goalSvc    *GoalService
	moderation *ModerationService
	limiter    ratelimit.Admitter
	isAdmin    func(ctx context.Context, userID uint) (bool, error)
}

type CreatePostInput struct {
	UserID        uint
	GoalID        uint
	Content       string
	ProgressValue *int64
	ImageURL      string
}

func NewPostService(
	postRepo repository.PostRepository,
	goalRepo repository.GoalRepository,
	kudoRepo repository.KudoRepository,
	goalSvc *GoalService,
	moderation *ModerationService,
	limiter ratelimit.Admitter,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *PostService {
	return &PostService{
		postRepo:   postRepo,
		goalRepo:   goalRepo,
		kudoRepo:   kudoRepo,
		goalSvc:    goalSvc,
		moderation: moderation,
		limiter:    limiter,
		isAdmin:    isAdmin,
	}
}

// CreatePost publishes a progress update on a goal the caller owns. When
// ProgressValue is set, the value is folded into the goal after the post
// persists, which may auto-complete the goal.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const maxContentLen = 5000

	goal, err := s.goalRepo.GetByID(ctx, in.GoalID)
	if err != nil {
		return nil, err
	}
	if goal.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only post to your own goals")
	}
	if goal.Status != models.GoalStatusActive {
		return nil, models.NewConflictError("Goal is already completed")
	}

	if in.Content == "" && in.ProgressValue == nil && in.ImageURL == "" {
		return nil, models.NewValidationError("Post needs content, a progress value, or an image")
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 5000 characters)")
	}
	if in.ProgressValue != nil {
		if *in.ProgressValue <= 0 {
			return nil, models.NewValidationError("Progress value must be a positive number")
		}
		if goal.Type == models.GoalTypeMilestone {
			return nil, models.NewValidationError("Milestone goals do not track numeric progress")
		}
	}

	if err := s.moderation.ValidateContent(in.Content); err != nil {
		return nil, err
	}

	if res := s.limiter.Admit(ctx, in.UserID, "post"); !res.Allowed {
		return nil, models.NewRateLimitedError(res.RetryAfter)
	}

	post := &models.Post{
		UserID:        in.UserID,
		GoalID:        in.GoalID,
		Type:          models.PostTypeProgress,
		Content:       in.Content,
		ProgressValue: in.ProgressValue,
		ImageURL:      in.ImageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.PostsCreated.WithLabelValues(string(models.PostTypeProgress)).Inc()
	cache.Invalidate(ctx, cache.FeedKey)

	if in.ProgressValue != nil {
		if _, err := s.goalSvc.ApplyProgress(ctx, goal, *in.ProgressValue); err != nil {
			return nil, err
		}
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// GetPost fetches a post; the owning goal's visibility applies.
func (s *PostService) GetPost(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.goalSvc.GetGoal(ctx, post.GoalID, viewerID); err != nil {
		// Surface the post, not the goal, as the missing resource.
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, err
	}
	return post, nil
}

// ListFeed returns the public feed, newest first. The first page is served
// cache-aside; the viewer's kudoed flags are re-derived per request since
// the cached rows are shared.
func (s *PostService) ListFeed(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error) {
	if offset != 0 {
		return s.postRepo.List(ctx, limit, offset, viewerID)
	}

	var posts []*models.Post
	err := cache.Aside(ctx, cache.FeedKey, &posts, cache.FeedTTL, func() error {
		fetched, err := s.postRepo.List(ctx, limit, 0, 0)
		if err != nil {
			return err
		}
		posts = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	if viewerID != 0 && len(posts) > 0 {
		ids := make([]uint, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
			p.Kudoed = false
		}
		kudoed, err := s.postRepo.GetKudoedPostIDs(ctx, viewerID, ids)
		if err != nil {
			return nil, err
		}
		kudoedSet := make(map[uint]struct{}, len(kudoed))
		for _, id := range kudoed {
			kudoedSet[id] = struct{}{}
		}
		for _, p := range posts {
			if _, ok := kudoedSet[p.ID]; ok {
				p.Kudoed = true
			}
		}
	}

	return posts, nil
}

func (s *PostService) ListByUser(ctx context.Context, userID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID, limit, offset, viewerID)
}

func (s *PostService) ListByGoal(ctx context.Context, goalID, viewerID uint) ([]*models.Post, error) {
	if _, err := s.goalSvc.GetGoal(ctx, goalID, viewerID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByGoal(ctx, goalID, viewerID)
}

// GiveKudoz adds the caller's kudo to a post. Giving twice is a no-op;
// the displayed count is always the size of the kudoz set.
func (s *PostService) GiveKudoz(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}

	if res := s.limiter.Admit(ctx, userID, "kudoz"); !res.Allowed {
		return nil, models.NewRateLimitedError(res.RetryAfter)
	}

	if err := s.kudoRepo.Give(ctx, userID, postID); err != nil {
		return nil, err
	}
	observability.KudozToggles.WithLabelValues("give").Inc()
	cache.InvalidatePost(ctx, postID)

	return s.postRepo.GetByID(ctx, postID, userID)
}

// RemoveKudoz removes the caller's kudo. Removing an absent kudo is a
// no-op success.
func (s *PostService) RemoveKudoz(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}

	if err := s.kudoRepo.Remove(ctx, userID, postID); err != nil {
		return nil, err
	}
	observability.KudozToggles.WithLabelValues("remove").Inc()
	cache.InvalidatePost(ctx, postID)

	return s.postRepo.GetByID(ctx, postID, userID)
}

// DeletePost removes a post. Admins may delete posts they do not own.
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		if s.isAdmin == nil {
			return models.NewUnauthorizedError("You can only delete your own posts")
		}
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return err
		}
		if !admin {
			return models.NewUnauthorizedError("You can only delete your own posts")
		}
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, postID)
	return nil
}
