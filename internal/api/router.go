package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/actor"
	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/httputil"
	"github.com/unfairwheel/wheel-server/internal/identity"
	"github.com/unfairwheel/wheel-server/internal/metadata"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// base is embedded by every group-scoped handler. It resolves a group's actor and the caller's role, and keeps the
// Metadata Store in sync after mutations per §4.2 — best-effort: each sync runs inline with a 3-second timeout, and
// a failure is logged and never reverts the mutation that triggered it.
type base struct {
	registry *actor.Registry
	meta     *metadata.Store
	log      zerolog.Logger
}

// resolved bundles a request's group-scoped context: the actor, its current group/participants, and the caller's
// computed role.
type resolved struct {
	actor        *actor.Actor
	group        wheel.Group
	participants []wheel.Participant
	role         role
}

// resolveGroup loads groupID's actor (rehydrating from a checkpoint if this process hasn't seen it yet) and
// computes the caller's role against its current state. Returns apierr.NotFound if the group does not exist.
func (b *base) resolveGroup(c fiber.Ctx, groupID string) (resolved, error) {
	a, err := b.registry.Resolve(c.Context(), groupID)
	if err != nil {
		return resolved{}, err
	}
	group, err := a.GetGroup(c.Context())
	if err != nil {
		return resolved{}, err
	}
	participants, err := a.GetParticipants(c.Context())
	if err != nil {
		return resolved{}, err
	}
	id, ok := identity.FromContext(c)
	r := resolveRole(id, ok, group, participants)
	return resolved{actor: a, group: group, participants: participants, role: r}, nil
}

// syncGroupMetadata refreshes the group:{id} summary; the owner-group:{ownerUserId}:{id} marker is written by
// syncOwner. Called after Init and RenameGroup, the two operations that can change the fields the summary carries.
func (b *base) syncGroupMetadata(group wheel.Group) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.meta.PutGroupSummary(ctx, metadata.GroupSummary{
		ID: group.ID, Name: group.Name, CreatedAt: group.CreatedAt,
		OwnerUserID: group.OwnerUserID, OwnerEmail: group.OwnerEmail,
	}); err != nil {
		b.log.Warn().Err(err).Str("group_id", group.ID).Msg("metadata group summary sync failed")
	}
}

// syncOwner records ownership, called once on group creation.
func (b *base) syncOwner(ownerUserID, groupID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := b.meta.MarkOwner(ctx, ownerUserID, groupID); err != nil {
		b.log.Warn().Err(err).Str("group_id", groupID).Msg("metadata owner sync failed")
	}
}

// syncParticipantEmails diffs and writes the participant-group index, called after any roster mutation.
func (b *base) syncParticipantEmails(groupID string, participants []wheel.Participant) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	emails := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.EmailID != nil && *p.EmailID != "" {
			emails = append(emails, *p.EmailID)
		}
	}
	if err := b.meta.SyncParticipantEmails(ctx, groupID, emails); err != nil {
		b.log.Warn().Err(err).Str("group_id", groupID).Msg("metadata participant email sync failed")
	}
}

// writeErr renders any error through the apierr taxonomy, defaulting to an internal error for anything untyped.
func writeErr(c fiber.Ctx, err error) error {
	return httputil.FailErr(c, apierr.As(err))
}

// requireAuthenticated extracts the caller's identity or returns an Auth error. Used by endpoints whose auth
// requirement is "required" per §6's table (OptionalAuth still must run first so Locals is populated when present).
func requireAuthenticated(c fiber.Ctx) (identity.Identity, error) {
	id, ok := identity.FromContext(c)
	if !ok {
		return identity.Identity{}, apierr.Auth("authentication required")
	}
	return id, nil
}

// newGroupID mints a fresh opaque group identifier.
func newGroupID() string { return uuid.NewString() }
