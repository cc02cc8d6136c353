package server

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown emails and wrong
	// passwords alike, so login responses never reveal which one it was.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountInactive is returned when a known account is suspended or
	// deactivated.
	ErrAccountInactive = errors.New("account is not active")
)
