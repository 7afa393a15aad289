package api

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/unfairwheel/wheel-server/internal/actor"
	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/httputil"
	"github.com/unfairwheel/wheel-server/internal/metadata"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// GroupHandler serves the group-creation, group-lookup, and bookmark endpoints.
type GroupHandler struct {
	base
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(registry *actor.Registry, meta *metadata.Store, logger zerolog.Logger) *GroupHandler {
	return &GroupHandler{base{registry: registry, meta: meta, log: logger.With().Str("handler", "group").Logger()}}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type renameGroupRequest struct {
	Name string `json:"name"`
}

type bookmarksRequest struct {
	GroupIDs []string `json:"groupIds"`
}

// Create handles POST /groups. The caller becomes the group's owner and sole initial (manager) participant.
func (h *GroupHandler) Create(c fiber.Ctx) error {
	id, err := requireAuthenticated(c)
	if err != nil {
		return writeErr(c, err)
	}

	var body createGroupRequest
	if err := c.Bind().Body(&body); err != nil {
		return writeErr(c, apierr.Validation("invalid request body"))
	}

	groupID := newGroupID()
	ownerParticipantID := uuid.NewString()
	ownerDisplayName := id.DisplayName
	if ownerDisplayName == "" {
		ownerDisplayName = id.PrimaryEmail
	}

	a := h.registry.Get(groupID)
	group, err := a.Init(c.Context(), actor.InitInput{
		GroupID:            groupID,
		Name:               body.Name,
		OwnerUserID:        id.UserID.String(),
		OwnerEmail:         id.PrimaryEmail,
		OwnerParticipantID: ownerParticipantID,
		OwnerDisplayName:   ownerDisplayName,
		CreatedAt:          time.Now(),
	})
	if err != nil {
		return writeErr(c, err)
	}

	owner := wheel.Participant{ID: ownerParticipantID, EmailID: &group.OwnerEmail}
	h.syncGroupMetadata(group)
	h.syncOwner(group.OwnerUserID, group.ID)
	h.syncParticipantEmails(group.ID, []wheel.Participant{owner})

	return httputil.SuccessStatus(c, fiber.StatusCreated, group)
}

// ListMine handles GET /groups/me: the union of groups the caller owns and groups whose roster includes one of
// their verified emails.
func (h *GroupHandler) ListMine(c fiber.Ctx) error {
	id, err := requireAuthenticated(c)
	if err != nil {
		return writeErr(c, err)
	}

	ctx := c.Context()
	ids := map[string]struct{}{}

	owned, err := h.meta.OwnedGroupIDs(ctx, id.UserID.String())
	if err != nil {
		h.log.Warn().Err(err).Msg("owned group lookup failed")
	}
	for _, gid := range owned {
		ids[gid] = struct{}{}
	}

	for _, email := range id.VerifiedEmails {
		matched, err := h.meta.MatchedGroupIDs(ctx, email)
		if err != nil {
			h.log.Warn().Err(err).Str("email", email).Msg("matched group lookup failed")
			continue
		}
		for _, gid := range matched {
			ids[gid] = struct{}{}
		}
	}

	summaries := make([]metadata.GroupSummary, 0, len(ids))
	for gid := range ids {
		summary, ok, err := h.meta.GetGroupSummary(ctx, gid)
		if err != nil {
			h.log.Warn().Err(err).Str("group_id", gid).Msg("group summary lookup failed")
			continue
		}
		if ok {
			summaries = append(summaries, summary)
		}
	}

	return httputil.Success(c, summaries)
}

// GetBookmarks handles GET /groups/bookmarks.
func (h *GroupHandler) GetBookmarks(c fiber.Ctx) error {
	id, err := requireAuthenticated(c)
	if err != nil {
		return writeErr(c, err)
	}
	ids, err := h.meta.GetBookmarks(c.Context(), id.UserID.String())
	if err != nil {
		return writeErr(c, apierr.Internal("failed to load bookmarks", err))
	}
	return httputil.Success(c, ids)
}

// PutBookmarks handles PUT /groups/bookmarks.
func (h *GroupHandler) PutBookmarks(c fiber.Ctx) error {
	id, err := requireAuthenticated(c)
	if err != nil {
		return writeErr(c, err)
	}
	var body bookmarksRequest
	if err := c.Bind().Body(&body); err != nil {
		return writeErr(c, apierr.Validation("invalid request body"))
	}
	normalized, err := h.meta.PutBookmarks(c.Context(), id.UserID.String(), body.GroupIDs)
	if err != nil {
		return writeErr(c, apierr.Internal("failed to save bookmarks", err))
	}
	return httputil.Success(c, normalized)
}

// Get handles GET /groups/{id}. Auth is optional; any caller may view a group's public shape.
func (h *GroupHandler) Get(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	return httputil.Success(c, r.group)
}

// Rename handles PATCH /groups/{id}. Manager role required.
func (h *GroupHandler) Rename(c fiber.Ctx) error {
	r, err := h.resolveGroup(c, c.Params("id"))
	if err != nil {
		return writeErr(c, err)
	}
	if apiErr := r.role.requireManager(); apiErr != nil {
		return writeErr(c, apiErr)
	}

	var body renameGroupRequest
	if err := c.Bind().Body(&body); err != nil {
		return writeErr(c, apierr.Validation("invalid request body"))
	}

	group, err := r.actor.RenameGroup(c.Context(), body.Name)
	if err != nil {
		return writeErr(c, err)
	}
	h.syncGroupMetadata(group)
	return httputil.Success(c, group)
}
