package server

import "github.com/gofiber/fiber/v2"

type featureFlagsView struct {
	Configured map[string]string `json:"configured"`
	Evaluated  map[string]bool   `json:"evaluated"`
}

// GetFeatureFlags handles GET /api/feature-flags. Evaluation uses the
// caller's id as the rollout subject.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(envelope{
		Message: "Success",
		Data: featureFlagsView{
			Configured: s.featureFlags.Raw(),
			Evaluated:  s.featureFlags.Snapshot(currentUser(c).String()),
		},
	})
}
