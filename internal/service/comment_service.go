package service

import (
	"context"
	"time"

	"stride/internal/cache"
	"stride/internal/models"
	"stride/internal/ratelimit"
	"stride/internal/repository"
)

// CommentNode is one comment with its ordered replies, as served to
// clients. Siblings keep their original chronological order.
type CommentNode struct {
	*models.Comment
	Replies []*CommentNode `json:"replies"`
}

// CommentService owns threaded comments: the entitlement gate, thread
// reconstruction, and the time-boxed edit rules.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	userRepo    repository.UserRepository
	moderation  *ModerationService
	limiter     ratelimit.Admitter
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
	now         func() time.Time
}

type CreateCommentInput struct {
	UserID          uint
	PostID          uint
	ParentCommentID *uint
	Content         string
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	moderation *ModerationService,
	limiter ratelimit.Admitter,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
	now func() time.Time,
) *CommentService {
	if now == nil {
		now = time.Now
	}
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		userRepo:    userRepo,
		moderation:  moderation,
		limiter:     limiter,
		isAdmin:     isAdmin,
		now:         now,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	const maxCommentLen = 10000

	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0); err != nil {
		return nil, err
	}

	// Commenting is a paid-tier entitlement, reported distinctly from
	// validation and not-found failures.
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanComment() {
		return nil, models.NewUnauthorizedError("Commenting requires a paid subscription")
	}

	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	if in.ParentCommentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment belongs to a different post")
		}
	}

	if err := s.moderation.ValidateContent(in.Content); err != nil {
		return nil, err
	}

	if res := s.limiter.Admit(ctx, in.UserID, "comment"); !res.Allowed {
		return nil, models.NewRateLimitedError(res.RetryAfter)
	}

	comment := &models.Comment{
		PostID:          in.PostID,
		UserID:          in.UserID,
		ParentCommentID: in.ParentCommentID,
		Content:         in.Content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, in.PostID)

	return s.commentRepo.GetByID(ctx, comment.ID)
}

// GetCommentsForPost returns the post's comments as a forest of threads.
func (s *CommentService) GetCommentsForPost(ctx context.Context, postID uint) ([]*CommentNode, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	return BuildThread(comments), nil
}

// BuildThread turns flat chronological rows into a forest. Each comment
// gets a node in an arena keyed by id; children attach to their parent's
// node in input order. A comment whose parent row no longer exists is an
// orphan, and its whole subtree is silently left out.
func BuildThread(comments []*models.Comment) []*CommentNode {
	arena := make(map[uint]*CommentNode, len(comments))
	for _, c := range comments {
		arena[c.ID] = &CommentNode{Comment: c}
	}

	roots := make([]*CommentNode, 0, len(comments))
	for _, c := range comments {
		node := arena[c.ID]
		if c.ParentCommentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, ok := arena[*c.ParentCommentID]; ok {
			parent.Replies = append(parent.Replies, node)
		}
		// Orphans attach nowhere and never reach the roots.
	}
	return roots
}

// CanEdit reports whether the comment is still editable by its owner:
// inside the five-minute window and with no replies yet.
func (s *CommentService) CanEdit(ctx context.Context, userID, commentID uint) (bool, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return false, err
	}
	if comment.UserID != userID || !comment.WithinEditWindow(s.now()) {
		return false, nil
	}
	replies, err := s.commentRepo.CountReplies(ctx, commentID)
	if err != nil {
		return false, err
	}
	return replies == 0, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own comments")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if !comment.WithinEditWindow(s.now()) {
		return nil, models.NewValidationError("Comments can only be edited within 5 minutes of posting")
	}
	if err := s.moderation.ValidateContent(in.Content); err != nil {
		return nil, err
	}

	// The childless condition is enforced by the update itself, so a reply
	// landing after the checks above still blocks the edit.
	ok, err := s.commentRepo.UpdateContentIfChildless(ctx, in.CommentID, in.Content, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewConflictError("Comments with replies can no longer be edited")
	}
	cache.InvalidatePost(ctx, comment.PostID)

	return s.commentRepo.GetByID(ctx, in.CommentID)
}

// DeleteComment removes a comment. Its replies stay in the store but drop
// out of rendered threads as orphans. Admins may delete any comment.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		if s.isAdmin == nil {
			return nil, models.NewUnauthorizedError("You can only delete your own comments")
		}
		admin, err := s.isAdmin(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewUnauthorizedError("You can only delete your own comments")
		}
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return nil, err
	}
	cache.InvalidatePost(ctx, comment.PostID)

	return comment, nil
}
