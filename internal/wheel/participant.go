package wheel

import "strings"

// ValidateManagerEmail enforces "manager = true implies emailId != null". Pass the manager flag and email the
// participant would have after applying the caller's intent.
func ValidateManagerEmail(manager bool, emailID *string) error {
	if manager && (emailID == nil || *emailID == "") {
		return ErrManagerWithoutEmail
	}
	return nil
}

// IsDuplicateName reports whether name (already normalized) collides case-insensitively with any participant in
// existing other than excludeID.
func IsDuplicateName(existing []Participant, name, excludeID string) bool {
	folded := Fold(name)
	for _, p := range existing {
		if p.ID == excludeID {
			continue
		}
		if Fold(p.Name) == folded {
			return true
		}
	}
	return false
}

// ActiveParticipants returns the subset of participants that are active, preserving insertion order.
func ActiveParticipants(all []Participant) []Participant {
	active := make([]Participant, 0, len(all))
	for _, p := range all {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

// FindParticipant returns the participant with the given id and whether it was found.
func FindParticipant(all []Participant, id string) (Participant, bool) {
	for _, p := range all {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// IndexOfParticipant returns the slice index of the participant with the given id, or -1.
func IndexOfParticipant(all []Participant, id string) int {
	for i, p := range all {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// NormalizeEmail case-folds and trims an email id for use as a comparison/storage key. A nil or empty input returns
// nil, representing "no email."
func NormalizeEmail(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	folded := strings.ToLower(trimmed)
	return &folded
}
