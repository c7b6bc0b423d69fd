package errs

import (
	"errors"
	"fmt"
	"testing"
)

var errBoom = errors.New("boom")

func TestAppError_ErrorAndUnwrap(t *testing.T) {
	err := &AppError{Kind: Persistence, Message: "save failed", Cause: errBoom}

	if got, want := err.Error(), "save failed: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, errBoom) {
		t.Error("errors.Is should find the cause")
	}

	bare := &AppError{Kind: InvalidInput, Message: "bad url"}
	if got := bare.Error(); got != "bad url" {
		t.Errorf("Error() = %q, want %q", got, "bad url")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "nil", err: nil, want: Unknown},
		{name: "plain", err: errBoom, want: Unknown},
		{name: "direct", err: &AppError{Kind: NotFound}, want: NotFound},
		{name: "wrapped", err: fmt.Errorf("run: %w", &AppError{Kind: Conflict}), want: Conflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
