package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// ErrorKind classifies why a fetch did not produce a usable page. Scanners
// map each kind to a score through the shared failure attribution policy.
type ErrorKind string

const (
	// KindBlocked is an HTTP 403, most likely anti-bot protection.
	KindBlocked ErrorKind = "blocked"
	// KindNotFound is an HTTP 404.
	KindNotFound ErrorKind = "not_found"
	// KindTimeout covers deadlines hit while connecting or reading.
	KindTimeout ErrorKind = "timeout"
	// KindNetwork covers DNS, connect and TLS failures.
	KindNetwork ErrorKind = "network"
	// KindHTTPStatus is any other status >= 400.
	KindHTTPStatus ErrorKind = "http_status"
	// KindOther is everything else, including blocked private targets.
	KindOther ErrorKind = "other"
)

// Error is a classified fetch failure.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err == nil:
		return fmt.Sprintf("HTTP %d error", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// statusError classifies a response status. It returns nil for statuses below 400.
func statusError(code int) *Error {
	switch {
	case code == http.StatusForbidden:
		return &Error{Kind: KindBlocked, StatusCode: code}
	case code == http.StatusNotFound:
		return &Error{Kind: KindNotFound, StatusCode: code}
	case code >= http.StatusBadRequest:
		return &Error{Kind: KindHTTPStatus, StatusCode: code}
	default:
		return nil
	}
}

// Classify turns a transport error into an *Error. It returns nil for nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, ErrBlockedAddress) {
		return &Error{Kind: KindOther, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Err: err}
	}

	if isNetworkError(err) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	return &Error{Kind: KindOther, Err: err}
}

func isNetworkError(err error) bool {
	var (
		dnsErr     *net.DNSError
		opErr      *net.OpError
		recordErr  tls.RecordHeaderError
		certErr    *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.As(err, &recordErr),
		errors.As(err, &certErr),
		errors.As(err, &unknownCA),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}
