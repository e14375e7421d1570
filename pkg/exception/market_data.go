package exception

import "github.com/yanun0323/errors"

// Market data errors. Every failure surfaced by the gateway or the engine wraps one of these.
var (
	ErrValidation  = errors.New("market data: validation failed")
	ErrNotFound    = errors.New("market data: not found")
	ErrConflict    = errors.New("market data: conflict")
	ErrPersistence = errors.New("market data: persistence failed")

	ErrTransport = errors.New("market data: transport failed")
	ErrTimeout   = errors.New("market data: request timed out")
	ErrPublish   = errors.New("market data: publish failed")
)
