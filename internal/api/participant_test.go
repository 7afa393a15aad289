package api

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/unfairwheel/wheel-server/internal/identity"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

func newParticipantTestApp(t *testing.T) (*fiber.App, *GroupHandler, *ParticipantHandler) {
	t.Helper()
	app, gh := newTestApp(t)
	ph := NewParticipantHandler(gh.registry, gh.meta, gh.log)

	app.Get("/groups/:id/participants", identity.OptionalAuth(testSecret), ph.List)
	app.Post("/groups/:id/participants", identity.RequireAuth(testSecret), ph.Add)
	app.Patch("/groups/:id/participants/:pid", identity.RequireAuth(testSecret), ph.Update)
	app.Delete("/groups/:id/participants/:pid", identity.RequireAuth(testSecret), ph.Remove)
	app.Post("/groups/:id/participants/commit", identity.RequireAuth(testSecret), ph.Commit)
	return app, gh, ph
}

func createTestGroup(t *testing.T, app *fiber.App, owner identity.Identity) wheel.Group {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/groups", bearer(t, owner), createGroupRequest{Name: "Lunch"})
	var group wheel.Group
	decodeData(t, resp, &group)
	return group
}

func TestAddParticipantRequiresManager(t *testing.T) {
	t.Parallel()
	app, _, _ := newParticipantTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	stranger := identity.Identity{UserID: uuid.New(), PrimaryEmail: "stranger@example.com"}
	resp := doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/participants", bearer(t, stranger),
		addParticipantRequest{Name: "Bob"})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusForbidden)
	}
}

func TestAddParticipantRequiresAuth(t *testing.T) {
	t.Parallel()
	app, _, _ := newParticipantTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	resp := doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/participants", "", addParticipantRequest{Name: "Bob"})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnauthorized)
	}
}

func TestAddParticipantAsOwnerSucceeds(t *testing.T) {
	t.Parallel()
	app, _, _ := newParticipantTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	resp := doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/participants", bearer(t, owner),
		addParticipantRequest{Name: "Bob"})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusCreated)
	}
	var p wheel.Participant
	decodeData(t, resp, &p)
	if p.Name != "Bob" {
		t.Errorf("p.Name = %q, want %q", p.Name, "Bob")
	}
}

func TestAddParticipantDuplicateNameConflict(t *testing.T) {
	t.Parallel()
	app, _, _ := newParticipantTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/participants", bearer(t, owner), addParticipantRequest{Name: "Bob"})
	resp := doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/participants", bearer(t, owner), addParticipantRequest{Name: "bob"})
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusConflict)
	}
}

func TestRemoveOwnerParticipantIsProtected(t *testing.T) {
	t.Parallel()
	app, _, _ := newParticipantTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	resp := doJSON(t, app, http.MethodDelete, "/groups/"+group.ID+"/participants/"+group.OwnerParticipantID, bearer(t, owner), nil)
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusConflict)
	}
}

func TestCommitParticipantsAppliesAddsAndRemoves(t *testing.T) {
	t.Parallel()
	app, _, _ := newParticipantTestApp(t)
	owner := identity.Identity{UserID: uuid.New(), PrimaryEmail: "owner@example.com", VerifiedEmails: []string{"owner@example.com"}}
	group := createTestGroup(t, app, owner)

	addResp := doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/participants", bearer(t, owner), addParticipantRequest{Name: "Bob"})
	var bob wheel.Participant
	decodeData(t, addResp, &bob)

	resp := doJSON(t, app, http.MethodPost, "/groups/"+group.ID+"/participants/commit", bearer(t, owner), commitParticipantsRequest{
		Adds:    []commitAddSpec{{Name: "Carol"}},
		Removes: []string{bob.ID},
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}
	var participants []wheel.Participant
	decodeData(t, resp, &participants)
	names := map[string]bool{}
	for _, p := range participants {
		names[p.Name] = true
	}
	if names["Bob"] {
		t.Error("expected Bob to be removed")
	}
	if !names["Carol"] {
		t.Error("expected Carol to be added")
	}
}
