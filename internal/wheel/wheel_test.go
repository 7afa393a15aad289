package wheel

import (
	"errors"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return tm
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"trims and collapses", "  Friday   Squad  ", "Friday Squad", nil},
		{"strips markup", "<b>Ada</b>", "Ada", nil},
		{"empty after trim", "   ", "", ErrNameLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeName(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestNormalizeNameBoundary(t *testing.T) {
	t.Parallel()

	if _, err := NormalizeName(stringOfLen(60)); err != nil {
		t.Errorf("60 chars should be valid, got error: %v", err)
	}
	if _, err := NormalizeName(stringOfLen(61)); !errors.Is(err, ErrNameLength) {
		t.Errorf("61 chars should be invalid, got: %v", err)
	}
}

func TestGroupRename(t *testing.T) {
	t.Parallel()

	g := &Group{Name: "Old Name"}
	if err := g.Rename("  New   Name "); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if g.Name != "New Name" {
		t.Errorf("Name = %q, want %q", g.Name, "New Name")
	}

	if err := g.Rename("   "); !errors.Is(err, ErrNameLength) {
		t.Errorf("Rename() with blank name error = %v, want ErrNameLength", err)
	}
	if g.Name != "New Name" {
		t.Errorf("Name changed after failed rename: %q", g.Name)
	}
}

func TestParticipantWeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		spins int
		want  int
	}{
		{0, 1},
		{1, 2},
		{5, 6},
	}
	for _, tt := range tests {
		p := Participant{SpinsSinceLastWon: tt.spins}
		if got := p.Weight(); got != tt.want {
			t.Errorf("Weight() with spins=%d = %d, want %d", tt.spins, got, tt.want)
		}
	}
}

func TestPendingResultExpired(t *testing.T) {
	t.Parallel()

	pr := PendingResult{ExpiresAt: mustTime(t, "2026-01-01T00:10:00Z")}
	before := mustTime(t, "2026-01-01T00:05:00Z")
	after := mustTime(t, "2026-01-01T00:10:00Z")

	if pr.Expired(before) {
		t.Error("Expired() = true before expiry, want false")
	}
	if !pr.Expired(after) {
		t.Error("Expired() = false at/after expiry, want true")
	}
}
