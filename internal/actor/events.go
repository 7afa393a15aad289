package actor

import (
	"github.com/unfairwheel/wheel-server/internal/wheel"
)

// bumpVersion increments the actor's transaction counter. Call once per mutating operation, before emitting any of
// that operation's events, so that every event from the same transaction shares a version. It also fires the
// actor's checkpoint sink, if one is configured, so every committed transaction gets a best-effort persistence
// attempt without every operation having to remember to call it.
func (a *Actor) bumpVersion() int {
	a.version++
	a.persist()
	return a.version
}

// Snapshot is the full persistable state of a Group Actor: everything needed to rehydrate one after a process
// restart. It exists so the actor package can offer checkpointing without importing the checkpoint package.
type Snapshot struct {
	Group         wheel.Group
	Participants  []wheel.Participant
	Spin          wheel.SpinState
	History       []wheel.SpinHistoryItem
	PendingResult *wheel.PendingResult
}

// persist invokes the actor's checkpoint sink with the current state, if one is configured. Must only be called
// from the actor's own goroutine. The sink is expected to be non-blocking (e.g. checkpoint.Store.SaveAsync); the
// actor never waits on persistence before continuing.
func (a *Actor) persist() {
	if a.checkpoint == nil {
		return
	}
	a.checkpoint(a.id, a.version, Snapshot{
		Group:         a.group,
		Participants:  cloneParticipants(a.participants),
		Spin:          a.spin,
		History:       append([]wheel.SpinHistoryItem(nil), a.history...),
		PendingResult: a.pendingResult,
	})
}

// emit builds the envelope for eventType/payload at the actor's current version and broadcasts it to every current
// subscriber, dropping any whose buffer is full per the back-pressure policy.
func (a *Actor) emit(eventType wheel.EventType, payload any) {
	ev := wheel.Event{
		Type:    eventType,
		GroupID: a.id,
		Version: a.version,
		Ts:      a.now(),
		Payload: payload,
	}
	for id, sub := range a.subscribers {
		if !sub.deliver(ev) {
			delete(a.subscribers, id)
		}
	}
}

// snapshotEvent builds the snapshot event for a newly attached subscriber, stamped with the actor's current version
// (not incremented — snapshots are not part of the version sequence).
func (a *Actor) snapshotEvent() wheel.Event {
	return wheel.Event{
		Type:    wheel.EventSnapshot,
		GroupID: a.id,
		Version: a.version,
		Ts:      a.now(),
		Payload: wheel.SnapshotPayload{
			Group:        a.group,
			Participants: cloneParticipants(a.participants),
			Spin:         a.spin,
		},
	}
}

func cloneParticipants(p []wheel.Participant) []wheel.Participant {
	out := make([]wheel.Participant, len(p))
	copy(out, p)
	return out
}
