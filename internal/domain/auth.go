package domain

import "time"

// Session maps an opaque session id to the user that owns it.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
}
