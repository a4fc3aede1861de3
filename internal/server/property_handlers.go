package server

import (
	"estate/internal/service"
	"estate/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreateProperty handles POST /api/properties
func (s *Server) CreateProperty(c *fiber.Ctx) error {
	var in service.CreatePropertyInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	if rejectInvalid(c, validation.ValidateAddress(in.Address)) != nil {
		return nil
	}
	res, err := s.propertyService.Create(c.UserContext(), in)
	return respond(c, res, err)
}

// AlterProperty handles PUT /api/properties/:id
func (s *Server) AlterProperty(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var in service.AlterPropertyInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	if rejectInvalid(c, validation.ValidateAddress(in.Address)) != nil {
		return nil
	}
	in.ID = id

	res, err := s.propertyService.Alter(c.UserContext(), in)
	return respond(c, res, err)
}

// ActivateProperty handles POST /api/properties/:id/activate
func (s *Server) ActivateProperty(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.propertyService.Activate(c.UserContext(), id)
	return respond(c, res, err)
}

// DeactivateProperty handles DELETE /api/properties/:id by taking the
// listing off the market.
func (s *Server) DeactivateProperty(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.propertyService.Deactivate(c.UserContext(), id)
	return respond(c, res, err)
}

// ListProperties handles POST /api/properties/paginate
func (s *Server) ListProperties(c *fiber.Ctx) error {
	in, err := parseList(c)
	if err != nil {
		return nil
	}
	res, err := s.propertyService.ListProperties(c.UserContext(), in)
	return respondPage(c, res, err)
}

// GetOwnerStats handles GET /api/properties/owners/:id/stats
func (s *Server) GetOwnerStats(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.propertyService.OwnerStats(c.UserContext(), id)
	return respond(c, res, err)
}
