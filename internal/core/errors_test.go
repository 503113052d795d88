package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	err := Forbidden("user %d is not a participant", 7)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden error to match ErrForbidden")
	}
	if errors.Is(err, ErrValidation) {
		t.Fatalf("forbidden error must not match ErrValidation")
	}

	wrapped := fmt.Errorf("send message: %w", err)
	if !errors.Is(wrapped, ErrForbidden) {
		t.Fatalf("expected wrapped error to match ErrForbidden")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "validation", err: Validation("bad"), want: KindValidation},
		{name: "wrapped not found", err: fmt.Errorf("x: %w", NotFound("gone")), want: KindNotFound},
		{name: "plain error", err: errors.New("disk on fire"), want: KindStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStorageUnwraps(t *testing.T) {
	cause := errors.New("database is locked")
	err := Storage("insert message", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected storage error to unwrap to cause")
	}
	if err.Error() != "insert message: database is locked" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
