package actor

import "time"

// InitInput is the payload for Init: the owner creates a group and its own manager participant atomically.
type InitInput struct {
	GroupID            string
	Name               string
	OwnerUserID        string
	OwnerEmail         string
	OwnerParticipantID string
	OwnerDisplayName   string
	CreatedAt          time.Time
}

// AddParticipantInput is the payload for AddParticipant.
type AddParticipantInput struct {
	Name    string
	EmailID *string
	Manager bool
}

// UpdateParticipantInput is the payload for UpdateParticipant. Nil fields mean "no change."
type UpdateParticipantInput struct {
	Active  *bool
	EmailID *string
	Manager *bool
}

// AddSpec is one entry of commitParticipants' adds list.
type AddSpec struct {
	Name    string
	EmailID *string
	Manager bool
}

// UpdateSpec is one entry of commitParticipants' updates list.
type UpdateSpec struct {
	ParticipantID string
	Active        *bool
	EmailID       *string
	Manager       *bool
}

// CommitInput is the payload for CommitParticipants: an atomic multi-operation roster change.
type CommitInput struct {
	Adds    []AddSpec
	Updates []UpdateSpec
	Removes []string
}
