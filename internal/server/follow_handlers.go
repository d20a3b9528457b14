package server

import (
	"github.com/gofiber/fiber/v2"
)

// FollowUser creates a follow edge from the caller to the target (protected)
func (s *Server) FollowUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.followService.Follow(ctx, userID, targetID); err != nil {
		return fail(c, err)
	}

	return c.SendStatus(fiber.StatusCreated)
}

// UnfollowUser removes the caller's follow edge to the target (protected)
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	if err := s.followService.Unfollow(ctx, userID, targetID); err != nil {
		return fail(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// FollowStatus reports the follow relationship between the caller and the target (protected)
func (s *Server) FollowStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	status, err := s.followService.Status(ctx, userID, targetID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(status)
}

// GetFollowers lists a user's followers (public)
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	ctx := c.UserContext()

	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	users, err := s.followService.ListFollowers(ctx, targetID, p.Limit, p.Offset)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(users)
}

// GetFollowing lists who a user follows (public)
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	ctx := c.UserContext()

	targetID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	p := parsePagination(c, 20)

	users, err := s.followService.ListFollowing(ctx, targetID, p.Limit, p.Offset)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(users)
}
