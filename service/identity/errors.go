package identity

import "errors"

var (
	// ErrUnauthorized is returned when a credential does not resolve to an owner.
	ErrUnauthorized = errors.New("identity: unauthorized")
	// ErrUnknownStrategy is returned by New for an unregistered strategy name.
	ErrUnknownStrategy = errors.New("identity: unknown strategy")
)
