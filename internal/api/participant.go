package api

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/actor"
	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/httputil"
	"github.com/unfairwheel/wheel-server/internal/metadata"
)

// ParticipantHandler serves the roster endpoints under /groups/{id}/participants.
type ParticipantHandler struct {
	base
}

// NewParticipantHandler constructs a ParticipantHandler.
func NewParticipantHandler(registry *actor.Registry, meta *metadata.Store, logger zerolog.Logger) *ParticipantHandler {
	return &ParticipantHandler{base{registry: registry, meta: meta, log: logger.With().Str("handler", "participant").Logger()}}
}

type addParticipantRequest struct {
	Name    string  `json:"name"`
	EmailID *string `json:"emailId"`
	Manager bool    `json:"manager"`
}

type updateParticipantRequest struct {
	Active  *bool   `json:"active"`
	EmailID *string `json:"emailId"`
	Manager *bool   `json:"manager"`
}

type commitAddSpec struct {
	Name    string  `json:"name"`
	EmailID *string `json:"emailId"`
	Manager bool    `json:"manager"`
}

type commitUpdateSpec struct {
	ParticipantID string  `json:"participantId"`
	Active        *bool   `json:"active"`
	EmailID       *string `json:"emailId"`
	Manager       *bool   `json:"manager"`
}

type commitParticipantsRequest struct {
	Adds    []commitAddSpec    `json:"adds"`
	Updates []commitUpdateSpec `json:"updates"`
	Removes []string           `json:"removes"`
}

// List handles GET /groups/{id}/participants. Auth is optional.
func (h *ParticipantHandler) List(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return httputil.Success(c, r.participants)
}

// Add handles POST /groups/{id}/participants. Manager role required.
func (h *ParticipantHandler) Add(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireManager(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	var body addParticipantRequest
	if err := c.Bind().Body(&body); err != nil {
		return writeErr(c, apierr.Validation("invalid request body"))
	}

	p, err := r.actor.AddParticipant(c.Context(), actor.AddParticipantInput{
		Name: body.Name, EmailID: body.EmailID, Manager: body.Manager,
	})
	if err != nil {
		return writeErr(c, err)
	}

	h.syncAfterRosterChange(c, r.actor, r.group.ID)
	return httputil.SuccessStatus(c, fiber.StatusCreated, p)
}

// Update handles PATCH /groups/{id}/participants/{pid}. Manager role required.
func (h *ParticipantHandler) Update(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireManager(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	var body updateParticipantRequest
	if err := c.Bind().Body(&body); err != nil {
		return writeErr(c, apierr.Validation("invalid request body"))
	}

	p, err := r.actor.UpdateParticipant(c.Context(), c.Params("pid"), actor.UpdateParticipantInput{
		Active: body.Active, EmailID: body.EmailID, Manager: body.Manager,
	})
	if err != nil {
		return writeErr(c, err)
	}

	h.syncAfterRosterChange(c, r.actor, r.group.ID)
	return httputil.Success(c, p)
}

// Remove handles DELETE /groups/{id}/participants/{pid}. Manager role required.
func (h *ParticipantHandler) Remove(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireManager(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	if err := r.actor.RemoveParticipant(c.Context(), c.Params("pid")); err != nil {
		return writeErr(c, err)
	}

	h.syncAfterRosterChange(c, r.actor, r.group.ID)
	return c.SendStatus(fiber.StatusNoContent)
}

// Commit handles POST /groups/{id}/participants/commit: an atomic multi-operation roster change. Manager role
// required.
func (h *ParticipantHandler) Commit(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireManager(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	var body commitParticipantsRequest
	if err := c.Bind().Body(&body); err != nil {
		return writeErr(c, apierr.Validation("invalid request body"))
	}

	in := actor.CommitInput{Removes: body.Removes}
	for _, a := range body.Adds {
		in.Adds = append(in.Adds, actor.AddSpec{Name: a.Name, EmailID: a.EmailID, Manager: a.Manager})
	}
	for _, u := range body.Updates {
		in.Updates = append(in.Updates, actor.UpdateSpec{
			ParticipantID: u.ParticipantID, Active: u.Active, EmailID: u.EmailID, Manager: u.Manager,
		})
	}

	participants, err := r.actor.CommitParticipants(c.Context(), in)
	if err != nil {
		return writeErr(c, err)
	}

	h.syncAfterRosterChange(c, r.actor, r.group.ID)
	return httputil.Success(c, participants)
}

// syncAfterRosterChange refreshes the participant-group index against the actor's post-mutation roster.
func (h *ParticipantHandler) syncAfterRosterChange(c fiber.Ctx, a *actor.Actor, groupID string) {
	participants, err := a.GetParticipants(c.Context())
	if err != nil {
		h.log.Warn().Err(err).Str("group_id", groupID).Msg("failed to reload participants for metadata sync")
		return
	}
	h.syncParticipantEmails(groupID, participants)
}
