package wheel

import (
	"errors"
	"testing"
)

func TestValidateManagerEmail(t *testing.T) {
	t.Parallel()

	email := "ada@example.com"
	empty := ""

	tests := []struct {
		name    string
		manager bool
		emailID *string
		wantErr bool
	}{
		{"manager with email ok", true, &email, false},
		{"manager without email rejected", true, nil, true},
		{"manager with empty email rejected", true, &empty, true},
		{"non-manager without email ok", false, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateManagerEmail(tt.manager, tt.emailID)
			if tt.wantErr && !errors.Is(err, ErrManagerWithoutEmail) {
				t.Errorf("err = %v, want ErrManagerWithoutEmail", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestIsDuplicateName(t *testing.T) {
	t.Parallel()

	existing := []Participant{
		{ID: "p1", Name: "Ada"},
		{ID: "p2", Name: "Ben"},
	}

	if !IsDuplicateName(existing, "ada", "") {
		t.Error("expected case-insensitive duplicate to be detected")
	}
	if IsDuplicateName(existing, "Cid", "") {
		t.Error("expected unique name to not be flagged")
	}
	if IsDuplicateName(existing, "Ada", "p1") {
		t.Error("expected self-exclusion to avoid false duplicate")
	}
}

func TestActiveParticipants(t *testing.T) {
	t.Parallel()

	all := []Participant{
		{ID: "p1", Active: true},
		{ID: "p2", Active: false},
		{ID: "p3", Active: true},
	}
	active := ActiveParticipants(all)
	if len(active) != 2 || active[0].ID != "p1" || active[1].ID != "p3" {
		t.Errorf("ActiveParticipants() = %v, want [p1 p3]", active)
	}
}

func TestFindAndIndexParticipant(t *testing.T) {
	t.Parallel()

	all := []Participant{{ID: "p1"}, {ID: "p2"}}

	if p, ok := FindParticipant(all, "p2"); !ok || p.ID != "p2" {
		t.Errorf("FindParticipant(p2) = %v, %v", p, ok)
	}
	if _, ok := FindParticipant(all, "missing"); ok {
		t.Error("FindParticipant(missing) = found, want not found")
	}
	if i := IndexOfParticipant(all, "p2"); i != 1 {
		t.Errorf("IndexOfParticipant(p2) = %d, want 1", i)
	}
	if i := IndexOfParticipant(all, "missing"); i != -1 {
		t.Errorf("IndexOfParticipant(missing) = %d, want -1", i)
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	raw := "  Ada@Example.com  "
	got := NormalizeEmail(&raw)
	if got == nil || *got != "ada@example.com" {
		t.Errorf("NormalizeEmail() = %v, want ada@example.com", got)
	}

	empty := "   "
	if got := NormalizeEmail(&empty); got != nil {
		t.Errorf("NormalizeEmail(blank) = %v, want nil", got)
	}

	if got := NormalizeEmail(nil); got != nil {
		t.Errorf("NormalizeEmail(nil) = %v, want nil", got)
	}
}
