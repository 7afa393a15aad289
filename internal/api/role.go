package api

import (
	"strings"

	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/identity"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// role is the Group Router's per-request answer to "who is this caller, relative to this group", computed fresh on
// every call per §4.2's role resolution algorithm. Unlike the teacher's RequireActiveMember (a global, DB-backed
// membership check applied once per process-wide resource), a group's role depends on the path's group id and the
// group's own participant roster, so it is resolved inline per handler rather than as reusable route middleware.
type role struct {
	isOwner       bool
	isParticipant bool
	isManager     bool
	participantID string
}

// resolveRole implements the §4.2 algorithm: isOwner compares user ids; matchedParticipant is the first participant
// whose emailId case-folded matches one of the caller's verified emails; isParticipant/isManager follow from it.
func resolveRole(id identity.Identity, authenticated bool, group wheel.Group, participants []wheel.Participant) role {
	var r role
	if authenticated && id.UserID.String() == group.OwnerUserID {
		r.isOwner = true
	}
	if !authenticated {
		return r
	}
	for _, p := range participants {
		if p.EmailID == nil {
			continue
		}
		if hasFoldedMatch(id.VerifiedEmails, *p.EmailID) {
			r.isParticipant = true
			r.isManager = p.Manager
			r.participantID = p.ID
			break
		}
	}
	return r
}

func hasFoldedMatch(verified []string, email string) bool {
	folded := strings.ToLower(email)
	for _, v := range verified {
		if strings.ToLower(v) == folded {
			return true
		}
	}
	return false
}

// requireManager returns a Forbidden error unless r is the owner or a manager participant. Owners are always
// implicitly managers of their own group, matching the invariant that a group's owner participant is always
// created with manager: true and can never have that revoked (see wheel.ErrOwnerProtected).
func (r role) requireManager() *apierr.Error {
	if r.isOwner || r.isManager {
		return nil
	}
	return apierr.Access("manager role required")
}

// requireParticipant returns a Forbidden error unless r is the owner or any participant.
func (r role) requireParticipant() *apierr.Error {
	if r.isOwner || r.isParticipant {
		return nil
	}
	return apierr.Access("group participation required")
}
