package server

import (
	"estate/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateActivity handles POST /api/activities. The duration is given in
// nanoseconds.
func (s *Server) CreateActivity(c *fiber.Ctx) error {
	var in service.CreateActivityInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	res, err := s.activityService.Create(c.UserContext(), in)
	return respond(c, res, err)
}

// AlterActivity handles PUT /api/activities/:id
func (s *Server) AlterActivity(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var in service.AlterActivityInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	in.ID = id

	res, err := s.activityService.Alter(c.UserContext(), in)
	return respond(c, res, err)
}

// ListActivities handles POST /api/activities/paginate
func (s *Server) ListActivities(c *fiber.Ctx) error {
	var in service.ListActivitiesInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	res, err := s.activityService.ListActivities(c.UserContext(), in)
	return respondPage(c, res, err)
}
