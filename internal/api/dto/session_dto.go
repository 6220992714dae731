package dto

// LoginRequest payload for POST /sessions. Missing fields are treated as bad
// credentials, not as a validation failure.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the sanitized user returned by session endpoints.
type UserResponse struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}
