package exception

import "errors"

// Kind classifies an error into the failure taxonomy shared by the gateway, the engine and the edge.
type Kind string

const (
	KindNone        Kind = ""
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindTransport   Kind = "transport"
	KindPersistence Kind = "persistence"
)

// KindOf walks the chain of err. Timeouts and publish failures are transport failures;
// anything unrecognized is reported as persistence.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidArgument):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrTransport), errors.Is(err, ErrTimeout), errors.Is(err, ErrPublish):
		return KindTransport
	default:
		return KindPersistence
	}
}

// Err returns the sentinel of k, or nil for KindNone.
func (k Kind) Err() error {
	switch k {
	case KindNone:
		return nil
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindConflict:
		return ErrConflict
	case KindTransport:
		return ErrTransport
	default:
		return ErrPersistence
	}
}
