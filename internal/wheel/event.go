package wheel

import "time"

// EventType enumerates the WebSocket event types in the §6 wire protocol.
type EventType string

const (
	EventSnapshot            EventType = "snapshot"
	EventGroupUpdated        EventType = "group.updated"
	EventParticipantAdded    EventType = "participant.added"
	EventParticipantUpdated  EventType = "participant.updated"
	EventParticipantRemoved  EventType = "participant.removed"
	EventSpinStarted         EventType = "spin.started"
	EventSpinResolved        EventType = "spin.resolved"
	EventSpinResultDismissed EventType = "spin.result.dismissed"
)

// Event is the envelope shared by every message on a group's WebSocket stream.
type Event struct {
	Type    EventType `json:"type"`
	GroupID string    `json:"groupId"`
	Version int       `json:"version"`
	Ts      time.Time `json:"ts"`
	Payload any       `json:"payload"`
}

// SnapshotPayload is the payload of the snapshot event sent once per connection at open.
type SnapshotPayload struct {
	Group        Group         `json:"group"`
	Participants []Participant `json:"participants"`
	Spin         SpinState     `json:"spin"`
}

// GroupPayload wraps a single group for group.updated.
type GroupPayload struct {
	Group Group `json:"group"`
}

// ParticipantPayload wraps a single participant for participant.added/participant.updated.
type ParticipantPayload struct {
	Participant Participant `json:"participant"`
}

// ParticipantRemovedPayload carries just the removed id.
type ParticipantRemovedPayload struct {
	ParticipantID string `json:"participantId"`
}

// SpinPayload wraps the spin state for spin.started/spin.resolved.
type SpinPayload struct {
	Spin SpinState `json:"spin"`
}

// DismissAction distinguishes how a pending result was cleared.
type DismissAction string

const (
	DismissSave    DismissAction = "save"
	DismissDiscard DismissAction = "discard"
)

// SpinResultDismissedPayload is the payload of spin.result.dismissed.
type SpinResultDismissedPayload struct {
	SpinID string        `json:"spinId"`
	Action DismissAction `json:"action"`
}
