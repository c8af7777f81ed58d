package suppression

import "errors"

var (
	// ErrNotFound is returned when removing an address that is not
	// suppressed.
	ErrNotFound = errors.New("suppression: not found")

	// ErrInvalidEmail is returned when the address fails syntax validation.
	ErrInvalidEmail = errors.New("suppression: invalid email address")

	// ErrInvalidReason is returned when the reason is not a member of the
	// reason enum.
	ErrInvalidReason = errors.New("suppression: invalid reason")
)
