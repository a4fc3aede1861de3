package server

import (
	"errors"

	"estate/internal/middleware"
	"estate/internal/service"
	"estate/internal/validation"

	"github.com/gofiber/fiber/v2"
)

var errLoginFields = errors.New("username and password are required")

func validateProfile(username, firstName, lastName, email string) error {
	if username != "" {
		if err := validation.ValidateUsername(username); err != nil {
			return err
		}
	}
	if err := validation.ValidateName("first name", firstName); err != nil {
		return err
	}
	if err := validation.ValidateName("last name", lastName); err != nil {
		return err
	}
	return validation.ValidateEmail(email)
}

// Signup handles POST /api/users. New accounts start inactive.
func (s *Server) Signup(c *fiber.Ctx) error {
	var in service.CreateUserInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	err := validateProfile(in.Username, in.FirstName, in.LastName, in.Email)
	if err == nil {
		err = validation.ValidatePassword(in.Password)
	}
	if rejectInvalid(c, err) != nil {
		return nil
	}

	res, err := s.userService.Create(c.UserContext(), in)
	return respond(c, res, err)
}

// Login handles POST /api/login. A successful login is attributed to the
// user it authenticates so the audit trail records it.
func (s *Server) Login(c *fiber.Ctx) error {
	var in service.LoginInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	if in.Username == "" || in.Password == "" {
		_ = rejectInvalid(c, errLoginFields)
		return nil
	}

	res, err := s.userService.Login(c.UserContext(), in)
	if err == nil && res.Entity.User != nil {
		c.Locals(middleware.UserIDLocal, res.Entity.User.ID)
	}
	return respond(c, res, err)
}

// ActivateUser handles PUT /api/users/activate/:id, the target of the
// activation link.
func (s *Server) ActivateUser(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.userService.Activate(c.UserContext(), id)
	return respond(c, res, err)
}

// SendResetPasswordLink handles POST /api/users/send-reset-password-link
func (s *Server) SendResetPasswordLink(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	res, err := s.userService.SendResetPasswordLink(c.UserContext(), req.Email)
	if err != nil {
		return respond(c, res, err)
	}
	return c.Status(res.Status.Code).JSON(envelope{Message: res.Status.Message})
}

// ConfirmPasswordReset handles POST /api/users/reset-password
func (s *Server) ConfirmPasswordReset(c *fiber.Ctx) error {
	var in service.ConfirmResetInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	if rejectInvalid(c, validation.ValidatePassword(in.NewPassword)) != nil {
		return nil
	}
	res, err := s.userService.ConfirmPasswordReset(c.UserContext(), in)
	return respond(c, res, err)
}
