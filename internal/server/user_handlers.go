package server

import (
	"stride/internal/models"
	"stride/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile returns a user's public profile with derived follow counts (public)
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()

	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetProfile(ctx, targetID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(user)
}

// UpdateMyProfile updates the authenticated user's profile (protected)
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		DisplayName string  `json:"display_name"`
		Bio         *string `json:"bio"`
		AvatarURL   string  `json:"avatar_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(user)
}

// CreateInvite consumes one of the caller's invite slots and issues a code (protected)
func (s *Server) CreateInvite(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	code, remaining, err := s.userService.CreateInvite(ctx, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"code":              code,
		"invites_remaining": remaining,
	})
}

// GetUserPosts lists a user's posts on public goals (public)
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	viewerID := currentUserID(c)

	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	posts, err := s.postService.ListByUser(ctx, targetID, p.Limit, p.Offset, viewerID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(posts)
}
