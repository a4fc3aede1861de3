package server

import (
	"errors"
	"strings"
	"unicode"

	"estate/internal/middleware"
	"estate/internal/models"
	"estate/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// envelope is the body of every successful response.
type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Total   *int64 `json:"total,omitempty"`
}

// respond writes a service result, using its Status code as the response
// status.
func respond[T any](c *fiber.Ctx, res models.Result[T], err error) error {
	if err != nil {
		return models.RespondWithError(c, models.StatusCodeOf(err), err)
	}
	return c.Status(res.Status.Code).JSON(envelope{Message: res.Status.Message, Data: res.Entity})
}

// respondPage writes one page of a listing with the total match count.
func respondPage[T any](c *fiber.Ctx, res models.Result[models.Page[T]], err error) error {
	if err != nil {
		return models.RespondWithError(c, models.StatusCodeOf(err), err)
	}
	total := res.Entity.Total
	return c.Status(res.Status.Code).JSON(envelope{
		Message: res.Status.Message,
		Data:    res.Entity.Items,
		Total:   &total,
	})
}

// parseUUID extracts a route parameter by name as a UUID.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
// The error message is derived from the parameter name (e.g. "id" -> "Invalid ID",
// "ownerId" -> "Invalid owner ID").
func parseUUID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil || id == uuid.Nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return uuid.Nil, errResponseWritten
	}
	return id, nil
}

// parseBody decodes the JSON body into dst. An empty body leaves dst at its
// zero value. On failure it writes a 400 and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// parseList decodes a paginate request body.
func parseList(c *fiber.Ctx) (service.ListInput, error) {
	var in service.ListInput
	err := parseBody(c, &in)
	return in, err
}

// rejectInvalid writes a 400 when err is set.
func rejectInvalid(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}
	_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	return errResponseWritten
}

// currentUser returns the authenticated caller. Routes using it sit behind
// AuthRequired.
func currentUser(c *fiber.Ctx) uuid.UUID {
	id, _ := middleware.CurrentUserID(c)
	return id
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "ownerId" -> "owner ID", "propertyId" -> "property ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
