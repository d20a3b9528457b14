package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stride/internal/config"
	"stride/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stubUserRepo is a function-field stub of repository.UserRepository.
type stubUserRepo struct {
	createFn        func(ctx context.Context, user *models.User) error
	getByIDFn       func(ctx context.Context, id uint) (*models.User, error)
	getByUsernameFn func(ctx context.Context, username string) (*models.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*models.User, error)
	updateFn        func(ctx context.Context, user *models.User) error
	consumeInviteFn func(ctx context.Context, userID uint) (bool, error)
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}

func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}

func (s *stubUserRepo) ConsumeInvite(ctx context.Context, userID uint) (bool, error) {
	return s.consumeInviteFn(ctx, userID)
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestRegister(t *testing.T) {
	newApp := func(repo *stubUserRepo) *fiber.App {
		s := &Server{
			config:   &config.Config{JWTSecret: "test_secret"},
			userRepo: repo,
		}
		app := fiber.New()
		app.Post("/register", s.Register)
		return app
	}

	t.Run("success issues a token", func(t *testing.T) {
		repo := &stubUserRepo{
			createFn: func(_ context.Context, user *models.User) error {
				user.ID = 1
				return nil
			},
		}
		app := newApp(repo)

		resp := postJSON(t, app, "/register", map[string]string{
			"username": "testuser",
			"email":    "test@example.com",
			"password": "Password123!",
		})
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var body struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, "testuser", body.User.Username)
	})

	t.Run("duplicate account is a conflict", func(t *testing.T) {
		repo := &stubUserRepo{
			createFn: func(_ context.Context, _ *models.User) error {
				return models.NewConflictError("Username or email already taken")
			},
		}
		app := newApp(repo)

		resp := postJSON(t, app, "/register", map[string]string{
			"username": "testuser",
			"email":    "exists@example.com",
			"password": "Password123!",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("weak password is rejected before the store", func(t *testing.T) {
		repo := &stubUserRepo{
			createFn: func(_ context.Context, _ *models.User) error {
				t.Fatal("Create must not be called for invalid input")
				return nil
			},
		}
		app := newApp(repo)

		resp := postJSON(t, app, "/register", map[string]string{
			"username": "testuser",
			"email":    "test@example.com",
			"password": "short",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	require.NoError(t, err)

	newApp := func(repo *stubUserRepo) *fiber.App {
		s := &Server{
			config:   &config.Config{JWTSecret: "test_secret"},
			userRepo: repo,
		}
		app := fiber.New()
		app.Post("/login", s.Login)
		return app
	}

	knownUser := &stubUserRepo{
		getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			return &models.User{ID: 7, Username: "alice", Email: email, PasswordHash: string(hashed)}, nil
		},
	}

	t.Run("valid credentials", func(t *testing.T) {
		app := newApp(knownUser)
		resp := postJSON(t, app, "/login", map[string]string{
			"email":    "alice@example.com",
			"password": "Password123!",
		})
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

		// The subject claim carries the user ID.
		token, _, err := jwt.NewParser().ParseUnverified(body.Token, jwt.MapClaims{})
		require.NoError(t, err)
		sub, err := token.Claims.GetSubject()
		require.NoError(t, err)
		assert.Equal(t, "7", sub)
	})

	t.Run("wrong password", func(t *testing.T) {
		app := newApp(knownUser)
		resp := postJSON(t, app, "/login", map[string]string{
			"email":    "alice@example.com",
			"password": "WrongPass456!",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown email reads as invalid credentials", func(t *testing.T) {
		repo := &stubUserRepo{
			getByEmailFn: func(_ context.Context, email string) (*models.User, error) {
				return nil, models.NewNotFoundError("User", email)
			},
		}
		app := newApp(repo)
		resp := postJSON(t, app, "/login", map[string]string{
			"email":    "ghost@example.com",
			"password": "Password123!",
		})
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
