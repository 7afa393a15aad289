package apierr

import (
	"errors"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestStatusForKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{"validation", Validation("bad name"), fiber.StatusBadRequest},
		{"auth", Auth("missing token"), fiber.StatusUnauthorized},
		{"access", Access("not a manager"), fiber.StatusForbidden},
		{"not found", NotFound("no such group"), fiber.StatusNotFound},
		{"conflict", Conflict("duplicate name"), fiber.StatusConflict},
		{"internal", Internal("impossible state", nil), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAsWrapsUntypedError(t *testing.T) {
	t.Parallel()

	wrapped := As(errors.New("boom"))
	if wrapped.Kind != KindInternal {
		t.Errorf("Kind = %v, want KindInternal", wrapped.Kind)
	}
	if wrapped.Status() != fiber.StatusInternalServerError {
		t.Errorf("Status() = %d, want %d", wrapped.Status(), fiber.StatusInternalServerError)
	}
}

func TestAsPassesThroughTypedError(t *testing.T) {
	t.Parallel()

	original := Conflict("duplicate name")
	if got := As(original); got != original {
		t.Errorf("As() = %v, want same instance %v", got, original)
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("pool exhausted")
	err := Internal("checkpoint failed", cause)
	if !errors.Is(err, cause) {
		t.Errorf("expected Unwrap chain to reach cause")
	}
	if err.Error() == "" {
		t.Errorf("expected non-empty error string")
	}
}
