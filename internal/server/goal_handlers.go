package server

import (
	"stride/internal/models"
	"stride/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateGoal creates a goal for the authenticated user (protected)
func (s *Server) CreateGoal(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		Title        string                `json:"title"`
		Description  string                `json:"description"`
		Type         models.GoalType       `json:"type"`
		TargetValue  *int64                `json:"target_value"`
		EffortTarget *int                  `json:"effort_target"`
		Visibility   models.GoalVisibility `json:"visibility"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	goal, err := s.goalService.CreateGoal(ctx, service.CreateGoalInput{
		UserID:       userID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		TargetValue:  req.TargetValue,
		EffortTarget: req.EffortTarget,
		Visibility:   req.Visibility,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(goal)
}

// GetMyGoals lists the authenticated user's goals (protected)
func (s *Server) GetMyGoals(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	p := parsePagination(c, 20)

	goals, err := s.goalService.ListGoals(ctx, userID, p.Limit, p.Offset)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(goals)
}

// GetGoal returns a single goal, subject to visibility (protected)
func (s *Server) GetGoal(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	goalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	goal, err := s.goalService.GetGoal(ctx, goalID, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(goal)
}

// UpdateGoal updates goal metadata (owner only)
func (s *Server) UpdateGoal(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	goalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       string                `json:"title"`
		Description *string               `json:"description"`
		TargetValue *int64                `json:"target_value"`
		Visibility  models.GoalVisibility `json:"visibility"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	}

	goal, err := s.goalService.UpdateGoal(ctx, service.UpdateGoalInput{
		UserID:      userID,
		GoalID:      goalID,
		Title:       req.Title,
		Description: req.Description,
		TargetValue: req.TargetValue,
		Visibility:  req.Visibility,
	})
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(goal)
}

// CompleteGoal marks a goal completed (owner only)
func (s *Server) CompleteGoal(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	goalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	goal, err := s.goalService.CompleteGoal(ctx, userID, goalID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(goal)
}

// DeleteGoal deletes a goal and everything attached to it (owner or admin)
func (s *Server) DeleteGoal(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	goalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.goalService.DeleteGoal(ctx, userID, goalID); err != nil {
		return fail(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// GetGoalPosts lists posts attached to a goal, subject to goal visibility (protected)
func (s *Server) GetGoalPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	goalID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	posts, err := s.postService.ListByGoal(ctx, goalID, userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(posts)
}
