package errs

import "fmt"

// Kind categorizes application errors for HTTP status mapping.
type Kind int

const (
	// Unknown represents an unclassified error.
	Unknown Kind = iota
	// InvalidInput indicates the audit URL or request was malformed (HTTP 400).
	InvalidInput
	// NotFound indicates the referenced audit does not exist (HTTP 404).
	NotFound
	// Conflict indicates the audit is not in a state that allows the operation (HTTP 409).
	Conflict
	// Persistence indicates the audit store rejected a read or write (HTTP 500).
	Persistence
	// Unreachable indicates the target URL could not be reached (HTTP 502).
	Unreachable
	// Timeout indicates the operation ran past its deadline (HTTP 504).
	Timeout
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "invalid_input"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Persistence:
		return "persistence"
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// AppError carries a category, user message, and original cause.
type AppError struct {
	Kind           Kind
	UpstreamStatus int // HTTP status code returned by the target domain
	Message        string
	Cause          error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// KindOf returns the Kind of the first AppError in err's chain, or Unknown.
func KindOf(err error) Kind {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return Unknown
		}
		err = u.Unwrap()
	}
	return Unknown
}
