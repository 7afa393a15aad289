package actor

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/unfairwheel/wheel-server/internal/apierr"
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// mapWheelErr translates the wheel package's sentinel errors into the apierr taxonomy the router consumes. Any
// error not recognized here is treated as an impossible-state InternalError.
func mapWheelErr(err error) *apierr.Error {
	switch {
	case errors.Is(err, wheel.ErrNameLength), errors.Is(err, wheel.ErrManagerWithoutEmail):
		return apierr.Validation(err.Error())
	case errors.Is(err, wheel.ErrDuplicateName):
		return apierr.Conflict(err.Error())
	case errors.Is(err, wheel.ErrOwnerProtected):
		return apierr.Conflict(err.Error())
	case errors.Is(err, wheel.ErrNotFound):
		return apierr.NotFound(err.Error())
	default:
		return apierr.Internal("unexpected group actor error", err)
	}
}

func (a *Actor) requireInitialized() *apierr.Error {
	if !a.initialized {
		return apierr.NotFound("group not found")
	}
	return nil
}

// Init creates the group and its owner participant. It is idempotent for repeated calls carrying the same group id.
func (a *Actor) Init(ctx context.Context, in InitInput) (wheel.Group, error) {
	return submit(ctx, a, func() (wheel.Group, error) {
		if a.initialized {
			if a.group.ID == in.GroupID {
				return a.group, nil
			}
			return wheel.Group{}, apierr.Internal("actor already initialized for a different group", ErrAlreadyInitialized)
		}

		groupName, err := wheel.NormalizeName(in.Name)
		if err != nil {
			return wheel.Group{}, mapWheelErr(err)
		}
		ownerName, err := wheel.NormalizeName(in.OwnerDisplayName)
		if err != nil {
			return wheel.Group{}, mapWheelErr(err)
		}

		ownerEmail := in.OwnerEmail
		group := wheel.Group{
			ID:                 in.GroupID,
			Name:               groupName,
			CreatedAt:          in.CreatedAt,
			OwnerUserID:        in.OwnerUserID,
			OwnerEmail:         in.OwnerEmail,
			OwnerParticipantID: in.OwnerParticipantID,
		}
		owner := wheel.Participant{
			ID:      in.OwnerParticipantID,
			Name:    ownerName,
			Active:  true,
			EmailID: &ownerEmail,
			Manager: true,
		}

		a.group = group
		a.participants = []wheel.Participant{owner}
		a.spin = wheel.SpinState{Status: wheel.SpinIdle}
		a.initialized = true

		return a.group, nil
	})
}

// Restore rehydrates a freshly spawned, not-yet-initialized actor from a persisted Snapshot, e.g. after a process
// restart finds no in-memory actor for a group id the Metadata Store or a checkpoint row still knows about. It is a
// no-op if the actor is already initialized, so a racing Init/Restore pair is safe: whichever lands first wins.
// version seeds the actor's transaction counter so subsequently emitted events continue the same sequence the
// checkpoint was taken from, per the ordering guarantee new subscribers rely on. A spin still mid-flight at
// checkpoint time is restored as idle: the resolver goroutine that would have completed it died with the old
// process, and there is no way to recover its exact remaining duration.
func (a *Actor) Restore(ctx context.Context, snap Snapshot, version int) error {
	_, err := submit(ctx, a, func() (struct{}, error) {
		if a.initialized {
			return struct{}{}, nil
		}
		a.group = snap.Group
		a.participants = cloneParticipants(snap.Participants)
		a.history = append([]wheel.SpinHistoryItem(nil), snap.History...)
		a.pendingResult = snap.PendingResult
		a.spin = snap.Spin
		if a.spin.Status == wheel.SpinSpinning {
			a.spin = wheel.SpinState{Status: wheel.SpinIdle}
		}
		a.version = version
		a.initialized = true
		return struct{}{}, nil
	})
	return err
}

// GetGroup returns the current group snapshot.
func (a *Actor) GetGroup(ctx context.Context) (wheel.Group, error) {
	return submit(ctx, a, func() (wheel.Group, error) {
		if err := a.requireInitialized(); err != nil {
			return wheel.Group{}, err
		}
		return a.group, nil
	})
}

// GetParticipants returns participants ordered by insertion.
func (a *Actor) GetParticipants(ctx context.Context) ([]wheel.Participant, error) {
	return submit(ctx, a, func() ([]wheel.Participant, error) {
		if err := a.requireInitialized(); err != nil {
			return nil, err
		}
		return cloneParticipants(a.participants), nil
	})
}

// RenameGroup validates and applies a new group name.
func (a *Actor) RenameGroup(ctx context.Context, name string) (wheel.Group, error) {
	return submit(ctx, a, func() (wheel.Group, error) {
		if err := a.requireInitialized(); err != nil {
			return wheel.Group{}, err
		}
		if err := a.group.Rename(name); err != nil {
			return wheel.Group{}, mapWheelErr(err)
		}

		a.bumpVersion()
		a.emit(wheel.EventGroupUpdated, wheel.GroupPayload{Group: a.group})

		return a.group, nil
	})
}

// AddParticipant validates and appends a new participant.
func (a *Actor) AddParticipant(ctx context.Context, in AddParticipantInput) (wheel.Participant, error) {
	return submit(ctx, a, func() (wheel.Participant, error) {
		if err := a.requireInitialized(); err != nil {
			return wheel.Participant{}, err
		}

		name, err := wheel.NormalizeName(in.Name)
		if err != nil {
			return wheel.Participant{}, mapWheelErr(err)
		}
		email := wheel.NormalizeEmail(in.EmailID)
		if err := wheel.ValidateManagerEmail(in.Manager, email); err != nil {
			return wheel.Participant{}, mapWheelErr(err)
		}
		if wheel.IsDuplicateName(a.participants, name, "") {
			return wheel.Participant{}, mapWheelErr(wheel.ErrDuplicateName)
		}

		p := wheel.Participant{
			ID:      uuid.NewString(),
			Name:    name,
			Active:  true,
			EmailID: email,
			Manager: in.Manager,
		}
		a.participants = append(a.participants, p)

		a.bumpVersion()
		a.emit(wheel.EventParticipantAdded, wheel.ParticipantPayload{Participant: p})

		return p, nil
	})
}

// UpdateParticipant applies a partial update to an existing participant.
func (a *Actor) UpdateParticipant(ctx context.Context, participantID string, in UpdateParticipantInput) (wheel.Participant, error) {
	return submit(ctx, a, func() (wheel.Participant, error) {
		if err := a.requireInitialized(); err != nil {
			return wheel.Participant{}, err
		}

		idx := wheel.IndexOfParticipant(a.participants, participantID)
		if idx == -1 {
			return wheel.Participant{}, mapWheelErr(wheel.ErrNotFound)
		}
		p := a.participants[idx]

		isOwner := participantID == a.group.OwnerParticipantID
		if isOwner && (in.EmailID != nil || in.Manager != nil || (in.Active != nil && !*in.Active)) {
			return wheel.Participant{}, mapWheelErr(wheel.ErrOwnerProtected)
		}

		finalManager := p.Manager
		if in.Manager != nil {
			finalManager = *in.Manager
		}
		finalEmail := p.EmailID
		if in.EmailID != nil {
			finalEmail = wheel.NormalizeEmail(in.EmailID)
		}
		if err := wheel.ValidateManagerEmail(finalManager, finalEmail); err != nil {
			return wheel.Participant{}, mapWheelErr(err)
		}

		if in.Active != nil {
			p.Active = *in.Active
		}
		p.EmailID = finalEmail
		p.Manager = finalManager
		a.participants[idx] = p

		a.bumpVersion()
		a.emit(wheel.EventParticipantUpdated, wheel.ParticipantPayload{Participant: p})

		return p, nil
	})
}

// RemoveParticipant deletes a participant from the roster. The owner's participant can never be removed.
func (a *Actor) RemoveParticipant(ctx context.Context, participantID string) error {
	_, err := submit(ctx, a, func() (struct{}, error) {
		if err := a.requireInitialized(); err != nil {
			return struct{}{}, err
		}
		if participantID == a.group.OwnerParticipantID {
			return struct{}{}, mapWheelErr(wheel.ErrOwnerProtected)
		}
		idx := wheel.IndexOfParticipant(a.participants, participantID)
		if idx == -1 {
			return struct{}{}, mapWheelErr(wheel.ErrNotFound)
		}

		a.participants = append(a.participants[:idx], a.participants[idx+1:]...)

		a.bumpVersion()
		a.emit(wheel.EventParticipantRemoved, wheel.ParticipantRemovedPayload{ParticipantID: participantID})

		return struct{}{}, nil
	})
	return err
}
