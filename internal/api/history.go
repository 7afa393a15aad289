package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/actor"
	"github.com/unfairwheel/wheel-server/internal/httputil"
	"github.com/unfairwheel/wheel-server/internal/metadata"
)

// HistoryHandler serves the spin history endpoints under /groups/{id}/history.
type HistoryHandler struct {
	base
}

// NewHistoryHandler constructs a HistoryHandler.
func NewHistoryHandler(registry *actor.Registry, meta *metadata.Store, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{base{registry: registry, meta: meta, log: logger.With().Str("handler", "history").Logger()}}
}

// List handles GET /groups/{id}/history. Participant role required.
func (h *HistoryHandler) List(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireParticipant(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	items, err := r.actor.ListHistory(c.Context())
	if err != nil {
		return writeErr(c, err)
	}
	return httputil.Success(c, items)
}

// Save handles POST /groups/{id}/history/{spinId}/save. Participant role required.
func (h *HistoryHandler) Save(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireParticipant(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	if err := r.actor.SaveSpin(c.Context(), c.Params("spinId")); err != nil {
		return writeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Discard handles DELETE /groups/{id}/history/{spinId}. Participant role required.
func (h *HistoryHandler) Discard(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireParticipant(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	if err := r.actor.DiscardSpin(c.Context(), c.Params("spinId")); err != nil {
		return writeErr(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
