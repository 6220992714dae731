package domain

// User is an authenticated account. Salt and Hash never leave the repository
// layer through API responses.
type User struct {
	ID      int64
	Email   string
	Name    string
	IsAdmin bool
	Salt    string
	Hash    string
}

// Sanitized returns a copy without credential material.
func (u User) Sanitized() User {
	u.Salt = ""
	u.Hash = ""
	return u
}
