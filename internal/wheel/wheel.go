// Package wheel holds the data model for the Group Actor: groups, participants, the spin state machine, history,
// and the pending-result compensation record. It contains no concurrency or transport concerns — those belong to
// the actor package, which owns a Group/Participant set and mutates it under a single-writer discipline.
package wheel

import (
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Sentinel errors raised by the validators and invariant-enforcing mutators in this package. The actor package maps
// these to the apierr taxonomy; this package stays free of HTTP concerns.
var (
	ErrNameLength          = errors.New("name must be between 1 and 60 characters")
	ErrDuplicateName       = errors.New("participant with this name already exists")
	ErrManagerWithoutEmail = errors.New("manager participants must have an email")
	ErrOwnerProtected      = errors.New("the owner participant cannot be modified in this way")
	ErrNotFound            = errors.New("not found")
)

// nameSanitizer strips any markup from group and participant names before they are stored, since both render
// directly into the wheel UI without further escaping on the client.
var nameSanitizer = bluemonday.StrictPolicy()

// NormalizeName trims surrounding whitespace, collapses internal whitespace runs to a single space, and strips HTML
// markup. It enforces the 1..60 rune bound shared by group and participant names.
func NormalizeName(raw string) (string, error) {
	sanitized := nameSanitizer.Sanitize(raw)
	fields := strings.Fields(sanitized)
	normalized := strings.Join(fields, " ")

	n := len([]rune(normalized))
	if n < 1 || n > 60 {
		return "", ErrNameLength
	}
	return normalized, nil
}

// Fold returns the case-folded form of a name used for uniqueness comparisons.
func Fold(name string) string {
	return strings.ToLower(name)
}

// Group is the root object a Group Actor owns. id, createdAt, ownerUserId, ownerEmail, and ownerParticipantId are
// immutable once set; Name is mutable by a manager via Rename.
type Group struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	CreatedAt          time.Time `json:"createdAt"`
	OwnerUserID        string    `json:"ownerUserId"`
	OwnerEmail         string    `json:"ownerEmail"`
	OwnerParticipantID string    `json:"ownerParticipantId"`
}

// Rename validates and applies a new name to the group. It is the only way Name may change.
func (g *Group) Rename(name string) error {
	normalized, err := NormalizeName(name)
	if err != nil {
		return err
	}
	g.Name = normalized
	return nil
}

// Participant is a named member of a Group, optionally keyed to a verified email and optionally a manager.
type Participant struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Active            bool    `json:"active"`
	EmailID           *string `json:"emailId"`
	Manager           bool    `json:"manager"`
	SpinsSinceLastWon int     `json:"spinsSinceLastWon"`
}

// Weight returns the participant's weighted-selection weight: max(1, spinsSinceLastWon+1).
func (p Participant) Weight() int {
	w := p.SpinsSinceLastWon + 1
	if w < 1 {
		return 1
	}
	return w
}

// SpinStatus tags the SpinState variant: either idle or spinning.
type SpinStatus string

const (
	SpinIdle     SpinStatus = "idle"
	SpinSpinning SpinStatus = "spinning"
)

// SpinState describes the group's current spin. When a spin resolves, Status becomes SpinIdle, ResolvedAt is
// populated, and the spin-specific fields (SpinID, StartedAt, WinnerParticipantID, DurationMs, ExtraTurns) are
// kept; a save/discard replaces it with a fresh idle state in which every other field is zero.
type SpinState struct {
	Status              SpinStatus `json:"status"`
	SpinID              string     `json:"spinId,omitempty"`
	StartedAt           time.Time  `json:"startedAt,omitempty"`
	WinnerParticipantID string     `json:"winnerParticipantId,omitempty"`
	DurationMs          int        `json:"durationMs,omitempty"`
	ExtraTurns          int        `json:"extraTurns,omitempty"`
	ResolvedAt          time.Time  `json:"resolvedAt,omitempty"`
}

// SpinHistoryItem records the outcome of one resolved spin. ID equals the spin's SpinID.
type SpinHistoryItem struct {
	ID                  string       `json:"id"`
	CreatedAt           time.Time    `json:"createdAt"`
	WinnerParticipantID string       `json:"winnerParticipantId"`
	Participants        []Participant `json:"participants"`
}

// PendingResult is the reversible window between a spin resolving and the client confirming (save) or reverting
// (discard) it. At most one exists per group.
type PendingResult struct {
	SpinID    string         `json:"spinId"`
	Counters  map[string]int `json:"counters"` // participantId -> spinsSinceLastWon as-of-just-before-resolution
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Expired reports whether the pending result's soft TTL has elapsed as of now.
func (pr PendingResult) Expired(now time.Time) bool {
	return !now.Before(pr.ExpiresAt)
}
