package service

import (
	"context"
	"testing"
	"time"

	"stride/internal/models"
	"stride/internal/ratelimit"

	"github.com/stretchr/testify/assert"
)

// Shared stubs and assertion helpers for the service tests.

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assert.True(t, models.IsCode(err, models.CodeValidation), "expected VALIDATION_ERROR, got %v", err)
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assert.True(t, models.IsCode(err, models.CodeUnauthorized), "expected UNAUTHORIZED, got %v", err)
}

func assertConflictError(t *testing.T, err error) {
	t.Helper()
	assert.True(t, models.IsCode(err, models.CodeConflict), "expected CONFLICT, got %v", err)
}

func assertRateLimitedError(t *testing.T, err error) {
	t.Helper()
	assert.True(t, models.IsCode(err, models.CodeRateLimited), "expected RATE_LIMITED, got %v", err)
}

// openLimiter admits everything; no rules are configured.
func openLimiter() *ratelimit.Limiter {
	return ratelimit.New(nil)
}

// closedLimiter denies the given action on every attempt.
type closedLimiter struct {
	retryAfter time.Duration
}

func (l closedLimiter) Admit(_ context.Context, _ uint, _ string) ratelimit.Result {
	return ratelimit.Result{Allowed: false, RetryAfter: l.retryAfter}
}

type userRepoStub struct {
	createFn        func(context.Context, *models.User) error
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	updateFn        func(context.Context, *models.User) error
	consumeInviteFn func(context.Context, uint) (bool, error)
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }
func (s *userRepoStub) ConsumeInvite(ctx context.Context, id uint) (bool, error) {
	return s.consumeInviteFn(ctx, id)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn: func(_ context.Context, _ *models.User) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Tier: models.TierPlus}, nil
		},
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return &models.User{}, nil },
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return &models.User{}, nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		consumeInviteFn: func(_ context.Context, _ uint) (bool, error) { return true, nil },
	}
}

type goalRepoStub struct {
	createFn            func(context.Context, *models.Goal) error
	getByIDFn           func(context.Context, uint) (*models.Goal, error)
	listByUserFn        func(context.Context, uint, int, int) ([]*models.Goal, error)
	updateFn            func(context.Context, *models.Goal) error
	incrementProgressFn func(context.Context, uint, int64) (*models.Goal, error)
	completeIfActiveFn  func(context.Context, uint, time.Time) (bool, error)
	deleteCascadeFn     func(context.Context, uint) error
}

func (s *goalRepoStub) Create(ctx context.Context, g *models.Goal) error { return s.createFn(ctx, g) }
func (s *goalRepoStub) GetByID(ctx context.Context, id uint) (*models.Goal, error) {
	return s.getByIDFn(ctx, id)
}
func (s *goalRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Goal, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *goalRepoStub) Update(ctx context.Context, g *models.Goal) error { return s.updateFn(ctx, g) }
func (s *goalRepoStub) IncrementProgress(ctx context.Context, goalID uint, delta int64) (*models.Goal, error) {
	return s.incrementProgressFn(ctx, goalID, delta)
}
func (s *goalRepoStub) CompleteIfActive(ctx context.Context, goalID uint, completedAt time.Time) (bool, error) {
	return s.completeIfActiveFn(ctx, goalID, completedAt)
}
func (s *goalRepoStub) DeleteCascade(ctx context.Context, goalID uint) error {
	return s.deleteCascadeFn(ctx, goalID)
}

func noopGoalRepo() *goalRepoStub {
	return &goalRepoStub{
		createFn: func(_ context.Context, _ *models.Goal) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Goal, error) {
			return &models.Goal{ID: id, UserID: 1, Status: models.GoalStatusActive, Visibility: models.VisibilityPublic}, nil
		},
		listByUserFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Goal, error) { return nil, nil },
		updateFn:     func(_ context.Context, _ *models.Goal) error { return nil },
		incrementProgressFn: func(_ context.Context, id uint, delta int64) (*models.Goal, error) {
			return &models.Goal{ID: id, Status: models.GoalStatusActive, CurrentValue: delta}, nil
		},
		completeIfActiveFn: func(_ context.Context, _ uint, _ time.Time) (bool, error) { return true, nil },
		deleteCascadeFn:    func(_ context.Context, _ uint) error { return nil },
	}
}

type postRepoStub struct {
	createFn             func(context.Context, *models.Post) error
	getByIDFn            func(context.Context, uint, uint) (*models.Post, error)
	listFn               func(context.Context, int, int, uint) ([]*models.Post, error)
	listByUserFn         func(context.Context, uint, int, int, uint) ([]*models.Post, error)
	listByGoalFn         func(context.Context, uint, uint) ([]*models.Post, error)
	countByGoalAndTypeFn func(context.Context, uint, models.PostType) (int64, error)
	updateFn             func(context.Context, *models.Post) error
	deleteFn             func(context.Context, uint) error
	getKudoedPostIDsFn   func(context.Context, uint, []uint) ([]uint, error)
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, viewerID)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int, viewerID uint) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset, viewerID)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int, viewerID uint) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID, limit, offset, viewerID)
}
func (s *postRepoStub) ListByGoal(ctx context.Context, goalID, viewerID uint) ([]*models.Post, error) {
	return s.listByGoalFn(ctx, goalID, viewerID)
}
func (s *postRepoStub) CountByGoalAndType(ctx context.Context, goalID uint, postType models.PostType) (int64, error) {
	return s.countByGoalAndTypeFn(ctx, goalID, postType)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error { return s.updateFn(ctx, p) }
func (s *postRepoStub) Delete(ctx context.Context, id uint) error        { return s.deleteFn(ctx, id) }
func (s *postRepoStub) GetKudoedPostIDs(ctx context.Context, userID uint, postIDs []uint) ([]uint, error) {
	return s.getKudoedPostIDsFn(ctx, userID, postIDs)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1, GoalID: 1, Type: models.PostTypeProgress}, nil
		},
		listFn:               func(_ context.Context, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		listByUserFn:         func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		listByGoalFn:         func(_ context.Context, _, _ uint) ([]*models.Post, error) { return nil, nil },
		countByGoalAndTypeFn: func(_ context.Context, _ uint, _ models.PostType) (int64, error) { return 0, nil },
		updateFn:             func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:             func(_ context.Context, _ uint) error { return nil },
		getKudoedPostIDsFn:   func(_ context.Context, _ uint, _ []uint) ([]uint, error) { return nil, nil },
	}
}

type commentRepoStub struct {
	createFn                   func(context.Context, *models.Comment) error
	getByIDFn                  func(context.Context, uint) (*models.Comment, error)
	listByPostFn               func(context.Context, uint) ([]*models.Comment, error)
	countRepliesFn             func(context.Context, uint) (int64, error)
	updateContentIfChildlessFn func(context.Context, uint, string, time.Time) (bool, error)
	deleteFn                   func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) CountReplies(ctx context.Context, commentID uint) (int64, error) {
	return s.countRepliesFn(ctx, commentID)
}
func (s *commentRepoStub) UpdateContentIfChildless(ctx context.Context, commentID uint, content string, editedAt time.Time) (bool, error) {
	return s.updateContentIfChildlessFn(ctx, commentID, content, editedAt)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, UserID: 1, PostID: 1}, nil
		},
		listByPostFn:   func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		countRepliesFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		updateContentIfChildlessFn: func(_ context.Context, _ uint, _ string, _ time.Time) (bool, error) {
			return true, nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

type followRepoStub struct {
	createFn         func(context.Context, *models.Follow) error
	deleteFn         func(context.Context, uint, uint) (bool, error)
	existsFn         func(context.Context, uint, uint) (bool, error)
	countFollowersFn func(context.Context, uint) (int64, error)
	countFollowingFn func(context.Context, uint) (int64, error)
	listFollowersFn  func(context.Context, uint, int, int) ([]*models.User, error)
	listFollowingFn  func(context.Context, uint, int, int) ([]*models.User, error)
}

func (s *followRepoStub) Create(ctx context.Context, f *models.Follow) error {
	return s.createFn(ctx, f)
}
func (s *followRepoStub) Delete(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.deleteFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Exists(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.existsFn(ctx, followerID, followingID)
}
func (s *followRepoStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowersFn(ctx, userID)
}
func (s *followRepoStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowingFn(ctx, userID)
}
func (s *followRepoStub) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]*models.User, error) {
	return s.listFollowersFn(ctx, userID, limit, offset)
}
func (s *followRepoStub) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]*models.User, error) {
	return s.listFollowingFn(ctx, userID, limit, offset)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		createFn:         func(_ context.Context, _ *models.Follow) error { return nil },
		deleteFn:         func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		existsFn:         func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		countFollowersFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		countFollowingFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		listFollowersFn:  func(_ context.Context, _ uint, _, _ int) ([]*models.User, error) { return nil, nil },
		listFollowingFn:  func(_ context.Context, _ uint, _, _ int) ([]*models.User, error) { return nil, nil },
	}
}

type kudoRepoStub struct {
	giveFn   func(context.Context, uint, uint) error
	removeFn func(context.Context, uint, uint) error
	existsFn func(context.Context, uint, uint) (bool, error)
	countFn  func(context.Context, uint) (int64, error)
}

func (s *kudoRepoStub) Give(ctx context.Context, userID, postID uint) error {
	return s.giveFn(ctx, userID, postID)
}
func (s *kudoRepoStub) Remove(ctx context.Context, userID, postID uint) error {
	return s.removeFn(ctx, userID, postID)
}
func (s *kudoRepoStub) Exists(ctx context.Context, userID, postID uint) (bool, error) {
	return s.existsFn(ctx, userID, postID)
}
func (s *kudoRepoStub) Count(ctx context.Context, postID uint) (int64, error) {
	return s.countFn(ctx, postID)
}

func noopKudoRepo() *kudoRepoStub {
	return &kudoRepoStub{
		giveFn:   func(_ context.Context, _, _ uint) error { return nil },
		removeFn: func(_ context.Context, _, _ uint) error { return nil },
		existsFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		countFn:  func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// memoryKudoRepo is a real set-membership implementation, used where the
// tests care about idempotency rather than call shapes.
type memoryKudoRepo struct {
	pairs map[[2]uint]struct{}
}

func newMemoryKudoRepo() *memoryKudoRepo {
	return &memoryKudoRepo{pairs: make(map[[2]uint]struct{})}
}

func (m *memoryKudoRepo) Give(_ context.Context, userID, postID uint) error {
	m.pairs[[2]uint{userID, postID}] = struct{}{}
	return nil
}
func (m *memoryKudoRepo) Remove(_ context.Context, userID, postID uint) error {
	delete(m.pairs, [2]uint{userID, postID})
	return nil
}
func (m *memoryKudoRepo) Exists(_ context.Context, userID, postID uint) (bool, error) {
	_, ok := m.pairs[[2]uint{userID, postID}]
	return ok, nil
}
func (m *memoryKudoRepo) Count(_ context.Context, postID uint) (int64, error) {
	var n int64
	for pair := range m.pairs {
		if pair[1] == postID {
			n++
		}
	}
	return n, nil
}
