package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/actor"
	"github.com/unfairwheel/wheel-server/internal/httputil"
	"github.com/unfairwheel/wheel-server/internal/metadata"
)

// SpinHandler serves the spin-request endpoint under /groups/{id}/spin.
type SpinHandler struct {
	base
}

// NewSpinHandler constructs a SpinHandler.
func NewSpinHandler(registry *actor.Registry, meta *metadata.Store, logger zerolog.Logger) *SpinHandler {
	return &SpinHandler{base{registry: registry, meta: meta, log: logger.With().Str("handler", "spin").Logger()}}
}

// Request handles POST /groups/{id}/spin. Participant role required. The wheel is resolved asynchronously by the
// group's actor; the caller learns the winner from the spin.resolved realtime event, not from this response.
func (h *SpinHandler) Request(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireParticipant(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	spin, err := r.actor.RequestSpin(c.Context())
	if err != nil {
		return writeErr(c, err)
	}

	return httputil.SuccessStatus(c, fiber.StatusAccepted, fiber.Map{"spin": spin})
}
