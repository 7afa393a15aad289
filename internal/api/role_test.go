package api

import (
	"testing"

	"github.com/google/uuid"

	"github.com/unfairwheel/wheel-server/internal/identity"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

func TestResolveRoleOwner(t *testing.T) {
	t.Parallel()
	ownerID := uuid.New()
	group := wheel.Group{OwnerUserID: ownerID.String()}
	id := identity.Identity{UserID: ownerID}

	r := resolveRole(id, true, group, nil)
	if !r.isOwner {
		t.Error("expected isOwner = true")
	}
	if r.isParticipant {
		t.Error("expected isParticipant = false with no matching roster entry")
	}
}

func TestResolveRoleUnauthenticated(t *testing.T) {
	t.Parallel()
	group := wheel.Group{OwnerUserID: uuid.NewString()}
	r := resolveRole(identity.Identity{}, false, group, nil)
	if r.isOwner || r.isParticipant || r.isManager {
		t.Errorf("expected all-false role for unauthenticated caller, got %+v", r)
	}
}

func TestResolveRoleParticipantByFoldedEmail(t *testing.T) {
	t.Parallel()
	email := "Ada@Example.com"
	group := wheel.Group{OwnerUserID: uuid.NewString()}
	emailLower := "ada@example.com"
	participants := []wheel.Participant{
		{ID: "p1", EmailID: &emailLower, Manager: true},
	}
	id := identity.Identity{UserID: uuid.New(), VerifiedEmails: []string{email}}

	r := resolveRole(id, true, group, participants)
	if !r.isParticipant {
		t.Error("expected isParticipant = true via case-folded email match")
	}
	if !r.isManager {
		t.Error("expected isManager = true")
	}
	if r.participantID != "p1" {
		t.Errorf("participantID = %q, want %q", r.participantID, "p1")
	}
}

func TestResolveRoleNoMatch(t *testing.T) {
	t.Parallel()
	otherEmail := "other@example.com"
	group := wheel.Group{OwnerUserID: uuid.NewString()}
	participants := []wheel.Participant{{ID: "p1", EmailID: &otherEmail}}
	id := identity.Identity{UserID: uuid.New(), VerifiedEmails: []string{"stranger@example.com"}}

	r := resolveRole(id, true, group, participants)
	if r.isParticipant || r.isOwner {
		t.Errorf("expected no role match, got %+v", r)
	}
}

func TestRequireManagerAllowsOwner(t *testing.T) {
	t.Parallel()
	r := role{isOwner: true}
	if err := r.requireManager(); err != nil {
		t.Errorf("requireManager() = %v, want nil for owner", err)
	}
}

func TestRequireManagerRejectsPlainParticipant(t *testing.T) {
	t.Parallel()
	r := role{isParticipant: true}
	if err := r.requireManager(); err == nil {
		t.Error("requireManager() = nil, want an access error for a non-manager participant")
	}
}

func TestRequireParticipantRejectsStranger(t *testing.T) {
	t.Parallel()
	r := role{}
	if err := r.requireParticipant(); err == nil {
		t.Error("requireParticipant() = nil, want an access error")
	}
}
