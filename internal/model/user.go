package model

import "time"

// User is an editor allowed into the snippets admin.
//
// Editors sign in either with a username/password (bcrypt hash stored here) or
// through GitHub OAuth. GitHubID is zero for accounts that were never linked.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"githubId,omitempty"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
