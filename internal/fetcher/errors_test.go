package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

var errWeird = errors.New("something odd")

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "deadline", err: fmt.Errorf("get: %w", context.DeadlineExceeded), want: KindTimeout},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "nope.invalid"}, want: KindNetwork},
		{name: "refused", err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, want: KindNetwork},
		{name: "blocked address", err: &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("%w: 10.0.0.1", ErrBlockedAddress)}, want: KindOther},
		{name: "already classified", err: &Error{Kind: KindBlocked, StatusCode: 403}, want: KindBlocked},
		{name: "other", err: errWeird, want: KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got == nil {
				t.Fatal("Classify() = nil")
			}
			if got.Kind != tt.want {
				t.Errorf("Classify().Kind = %q, want %q", got.Kind, tt.want)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code int
		want ErrorKind
	}{
		{code: 200, want: ""},
		{code: 301, want: ""},
		{code: 403, want: KindBlocked},
		{code: 404, want: KindNotFound},
		{code: 410, want: KindHTTPStatus},
		{code: 503, want: KindHTTPStatus},
	}

	for _, tt := range tests {
		got := statusError(tt.code)
		if tt.want == "" {
			if got != nil {
				t.Errorf("statusError(%d) = %v, want nil", tt.code, got)
			}
			continue
		}
		if got == nil || got.Kind != tt.want {
			t.Errorf("statusError(%d) = %v, want kind %q", tt.code, got, tt.want)
		}
	}
}
