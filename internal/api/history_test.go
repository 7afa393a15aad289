package api

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/unfairwheel/wheel-server/internal/identity"
)

func newHistoryTestApp(t *testing.T) (*fiber.App, *GroupHandler, *ParticipantHandler, *HistoryHandler) {
	t.Helper()
	app, gh, ph := newParticipantTestApp(t)
	hh := NewHistoryHandler(gh.registry, gh.meta, gh.log)
	app.Get("/groups/:id/history", identity.RequireAuth(testSecret), hh.List)
	app.Post("/groups/:id/history/:spinId/save", identity.RequireAuth(testSecret), hh.Save)
	app.Delete("/groups/:id/history/:spinId", identity.RequireAuth(testSecret), hh.Discard)
	return app, gh, ph, hh
}

func TestListHistoryRequiresAuth(t *testing.T) {
	t.Parallel()
	app, _, _, _ := newHistoryTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	resp := doJSON(t, app, http.MethodGet, "/groups/"+group.ID+"/history", "", nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestListHistoryRequiresParticipant(t *testing.T) {
	t.Parallel()
	app, _, _, _ := newHistoryTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	stranger := identity.Identity{UserID: uuid.New(), PrimaryEmail: "stranger@example.com"}
	resp := doJSON(t, app, http.MethodGet, "/groups/"+group.ID+"/history", bearer(t, stranger), nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusForbidden)
	}
}

func TestListHistoryEmptyForFreshGroup(t *testing.T) {
	t.Parallel()
	app, _, _, _ := newHistoryTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	resp := doJSON(t, app, http.MethodGet, "/groups/"+group.ID+"/history", bearer(t, owner), nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
	var items []any
	decodeData(t, resp, &items)
	if len(items) != 0 {
		t.Errorf("len(items) = %d, want 0", len(items))
	}
}

func TestSaveUnknownSpinIsNoOp(t *testing.T) {
	t.Parallel()
	app, _, _, _ := newHistoryTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	// SaveSpin is a no-op (not an error) for a spin id that isn't the current pending result, so a stale or
	// already-resolved dismissal from a client still succeeds with 204.
	resp := doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/history/does-not-exist/save", bearer(t, owner), nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusNoContent)
	}
}
