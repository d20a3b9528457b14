package server

import (
	"stride/internal/models"
	"stride/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePost creates a post on one of the author's goals (protected)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		GoalID        uint   `json:"goal_id"`
		Content       string `json:"content"`
		ProgressValue *int64 `json:"progress_value"`
		ImageURL      string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}
	if req.GoalID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Goal ID is required"))
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:        userID,
		GoalID:        req.GoalID,
		Content:       req.Content,
		ProgressValue: req.ProgressValue,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetFeed returns the public feed (public, kudoed personalized when authenticated)
func (s *Server) GetFeed(c *fiber.Ctx) error {
	ctx := c.UserContext()
	viewerID := currentUserID(c)
	p := parsePagination(c, 20)

	posts, err := s.postService.ListFeed(ctx, p.Limit, p.Offset, viewerID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(posts)
}

// GetPost returns a single post (public)
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	viewerID := currentUserID(c)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(ctx, postID, viewerID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(post)
}

// GiveKudoz adds the caller's kudo to a post (protected)
func (s *Server) GiveKudoz(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GiveKudoz(ctx, userID, postID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(post)
}

// RemoveKudoz removes the caller's kudo from a post (protected)
func (s *Server) RemoveKudoz(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.RemoveKudoz(ctx, userID, postID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(post)
}

// DeletePost deletes a post (owner or admin)
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(ctx, userID, postID); err != nil {
		return fail(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
