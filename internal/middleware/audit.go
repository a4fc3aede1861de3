package middleware

import (
	"time"

	"estate/internal/audit"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

// AuditSink accepts finished API operations without blocking.
type AuditSink interface {
	Record(e audit.Entry) bool
}

// AuditPath is the activity path stored for a request.
func AuditPath(path, method string) string {
	return path + "-->" + method
}

// Audit records authenticated requests that completed successfully, after
// the handler returns. Failed requests and error responses are skipped.
// enabled, when set, can switch recording off per user.
func Audit(sink AuditSink, enabled func(userID uuid.UUID) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
			return err
		}

		userID, ok := CurrentUserID(c)
		if !ok || sink == nil {
			return err
		}
		if enabled != nil && !enabled(userID) {
			return err
		}

		// fasthttp reuses the request buffers once the handler returns.
		path := utils.CopyString(c.Path())
		sink.Record(audit.Entry{
			UserID:   userID,
			Path:     AuditPath(path, c.Method()),
			Duration: time.Since(start),
		})
		return err
	}
}
