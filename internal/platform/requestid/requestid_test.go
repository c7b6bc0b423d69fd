package requestid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := NewContext(context.Background(), "abc")
	if got := FromContext(ctx); got != "abc" {
		t.Errorf("FromContext() = %q, want %q", got, "abc")
	}
	if got := FromContext(context.Background()); got != "" {
		t.Errorf("FromContext(empty) = %q, want empty", got)
	}
}

func TestDetach(t *testing.T) {
	parent, cancel := context.WithCancel(NewContext(context.Background(), "abc"))
	cancel()

	ctx := Detach(parent)
	if ctx.Err() != nil {
		t.Error("detached context should not be cancelled")
	}
	if got := FromContext(ctx); got != "abc" {
		t.Errorf("FromContext() = %q, want %q", got, "abc")
	}
}

func TestNewIsUnique(t *testing.T) {
	if New() == New() {
		t.Error("New() returned the same id twice")
	}
}
