package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// CommitParticipants applies an atomic roster change: every remove, update, and add is validated against the
// current state and against each other before anything is mutated. Either the whole batch applies or none of it
// does.
func (a *Actor) CommitParticipants(ctx context.Context, in CommitInput) ([]wheel.Participant, error) {
	return submit(ctx, a, func() ([]wheel.Participant, error) {
		if err := a.requireInitialized(); err != nil {
			return nil, err
		}

		removeSet, apiErr := a.validateRemoves(in.Removes)
		if apiErr != nil {
			return nil, apiErr
		}
		if apiErr := a.validateUpdates(in.Updates, removeSet); apiErr != nil {
			return nil, apiErr
		}
		normalizedAdds, apiErr := a.validateAdds(in.Adds, in.Updates, removeSet)
		if apiErr != nil {
			return nil, apiErr
		}

		var updated, added []wheel.Participant

		for _, id := range in.Removes {
			idx := wheel.IndexOfParticipant(a.participants, id)
			a.participants = append(a.participants[:idx], a.participants[idx+1:]...)
		}

		for _, u := range in.Updates {
			idx := wheel.IndexOfParticipant(a.participants, u.ParticipantID)
			p := a.participants[idx]
			if u.Active != nil {
				p.Active = *u.Active
			}
			if u.EmailID != nil {
				p.EmailID = wheel.NormalizeEmail(u.EmailID)
			}
			if u.Manager != nil {
				p.Manager = *u.Manager
			}
			a.participants[idx] = p
			updated = append(updated, p)
		}

		for _, add := range normalizedAdds {
			p := wheel.Participant{
				ID:      uuid.NewString(),
				Name:    add.Name,
				Active:  true,
				EmailID: add.EmailID,
				Manager: add.Manager,
			}
			a.participants = append(a.participants, p)
			added = append(added, p)
		}

		a.bumpVersion()
		for _, id := range in.Removes {
			a.emit(wheel.EventParticipantRemoved, wheel.ParticipantRemovedPayload{ParticipantID: id})
		}
		for _, p := range updated {
			a.emit(wheel.EventParticipantUpdated, wheel.ParticipantPayload{Participant: p})
		}
		for _, p := range added {
			a.emit(wheel.EventParticipantAdded, wheel.ParticipantPayload{Participant: p})
		}

		return cloneParticipants(a.participants), nil
	})
}

func (a *Actor) validateRemoves(removes []string) (map[string]bool, *apierr.Error) {
	seen := make(map[string]bool, len(removes))
	for _, id := range removes {
		if id == a.group.OwnerParticipantID {
			return nil, mapWheelErr(wheel.ErrOwnerProtected)
		}
		if seen[id] {
			return nil, apierr.Validation("duplicate participant id in removes")
		}
		if _, ok := wheel.FindParticipant(a.participants, id); !ok {
			return nil, mapWheelErr(wheel.ErrNotFound)
		}
		seen[id] = true
	}
	return seen, nil
}

func (a *Actor) validateUpdates(updates []UpdateSpec, removeSet map[string]bool) *apierr.Error {
	seen := make(map[string]bool, len(updates))
	for _, u := range updates {
		if removeSet[u.ParticipantID] {
			return apierr.Validation("participant appears in both updates and removes")
		}
		if seen[u.ParticipantID] {
			return apierr.Validation("duplicate participant id in updates")
		}
		existing, ok := wheel.FindParticipant(a.participants, u.ParticipantID)
		if !ok {
			return mapWheelErr(wheel.ErrNotFound)
		}
		isOwner := u.ParticipantID == a.group.OwnerParticipantID
		if isOwner && (u.EmailID != nil || u.Manager != nil || (u.Active != nil && !*u.Active)) {
			return mapWheelErr(wheel.ErrOwnerProtected)
		}

		finalManager := existing.Manager
		if u.Manager != nil {
			finalManager = *u.Manager
		}
		finalEmail := existing.EmailID
		if u.EmailID != nil {
			finalEmail = wheel.NormalizeEmail(u.EmailID)
		}
		if err := wheel.ValidateManagerEmail(finalManager, finalEmail); err != nil {
			return mapWheelErr(err)
		}

		seen[u.ParticipantID] = true
	}
	return nil
}

// validateAdds normalizes and validates the adds list, checking name uniqueness against the post-remove survivors
// and the other adds, and the manager/email invariant after applying each add's own intent.
func (a *Actor) validateAdds(adds []AddSpec, updates []UpdateSpec, removeSet map[string]bool) ([]AddSpec, *apierr.Error) {
	survivorNames := make(map[string]bool)
	for _, p := range a.participants {
		if removeSet[p.ID] {
			continue
		}
		survivorNames[foldedName(p.Name)] = true
	}

	normalized := make([]AddSpec, 0, len(adds))
	for _, add := range adds {
		name, err := wheel.NormalizeName(add.Name)
		if err != nil {
			return nil, mapWheelErr(err)
		}
		folded := foldedName(name)
		if survivorNames[folded] {
			return nil, mapWheelErr(wheel.ErrDuplicateName)
		}
		survivorNames[folded] = true

		email := wheel.NormalizeEmail(add.EmailID)
		if err := wheel.ValidateManagerEmail(add.Manager, email); err != nil {
			return nil, mapWheelErr(err)
		}

		normalized = append(normalized, AddSpec{Name: name, EmailID: email, Manager: add.Manager})
	}

	return normalized, nil
}

func foldedName(name string) string {
	// Mirrors wheel.IsDuplicateName's case-fold comparison without needing a slice to compare against.
	return wheel.Fold(name)
}
