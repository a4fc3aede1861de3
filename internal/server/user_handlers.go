package server

import (
	"estate/internal/service"
	"estate/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	res, err := s.userService.Get(c.UserContext(), currentUser(c))
	return respond(c, res, err)
}

// AlterUser handles PUT /api/users/:id
func (s *Server) AlterUser(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	var in service.AlterUserInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	if rejectInvalid(c, validateProfile(in.Username, in.FirstName, in.LastName, in.Email)) != nil {
		return nil
	}
	in.ID = id

	res, err := s.userService.Alter(c.UserContext(), in)
	return respond(c, res, err)
}

// DeactivateUser handles DELETE /api/users/:id. The caller is the actor, so
// nobody can deactivate their own account.
func (s *Server) DeactivateUser(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.userService.Deactivate(c.UserContext(), id, currentUser(c))
	return respond(c, res, err)
}

func (s *Server) parsePasswordChange(c *fiber.Ctx) (service.ResetPasswordInput, error) {
	var in service.ResetPasswordInput
	id, err := parseUUID(c, "id")
	if err != nil {
		return in, err
	}
	if err := parseBody(c, &in); err != nil {
		return in, err
	}
	if err := rejectInvalid(c, validation.ValidatePassword(in.NewPassword)); err != nil {
		return in, err
	}
	in.ID = id
	return in, nil
}

// ResetPassword handles PUT /api/users/:id/password
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	in, err := s.parsePasswordChange(c)
	if err != nil {
		return nil
	}
	res, err := s.userService.ResetPassword(c.UserContext(), in)
	return respond(c, res, err)
}

// ResetPasswordByID handles PUT /api/users/:id/password/confirm, which also
// requires the new password twice.
func (s *Server) ResetPasswordByID(c *fiber.Ctx) error {
	in, err := s.parsePasswordChange(c)
	if err != nil {
		return nil
	}
	res, err := s.userService.ResetPasswordByID(c.UserContext(), in)
	return respond(c, res, err)
}

// ListUsers handles POST /api/users/paginate
func (s *Server) ListUsers(c *fiber.Ctx) error {
	in, err := parseList(c)
	if err != nil {
		return nil
	}
	res, err := s.userService.ListUsers(c.UserContext(), in)
	return respondPage(c, res, err)
}

// AutocompleteUsers handles POST /api/users/autocomplete
func (s *Server) AutocompleteUsers(c *fiber.Ctx) error {
	var req struct {
		Search string `json:"search"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.userService.Autocomplete(c.UserContext(), req.Search)
	return respond(c, res, err)
}
