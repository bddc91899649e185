package models

// User is the current signed-in user as reported by the identity provider.
type User struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}
