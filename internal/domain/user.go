package domain

import "errors"

// UserID is the platform-assigned identifier of an end-user.
type UserID int64

var (
	// ErrUnauthorized is returned when a non-admin invokes an admin command.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUsage is returned for a broadcast without a payload.
	ErrUsage = errors.New("usage")
	// ErrConfiguration marks failures caused by the bot's own setup
	// (credential, admin id) rather than by a single recipient.
	ErrConfiguration = errors.New("configuration")
)

// Admin identifies the sole administrator. The zero value matches nobody.
type Admin struct {
	ID      UserID
	Enabled bool
}

// Is reports whether id belongs to the configured administrator.
func (a Admin) Is(id UserID) bool {
	return a.Enabled && a.ID == id
}

// Authorize returns ErrUnauthorized unless id is the administrator.
func (a Admin) Authorize(id UserID) error {
	if !a.Is(id) {
		return ErrUnauthorized
	}
	return nil
}
