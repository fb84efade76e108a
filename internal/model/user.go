// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Accounts come from two paths: local
// registration (username + password, bcrypt hash stored) or GitHub sign-in
// (GitHubID set, PasswordHash empty). Either way the feed only ever treats
// the user as a foreign key: posts and comments reference the ID and
// resolve Username/AvatarURL at read time.
//
// PasswordHash is excluded from JSON so a User can be returned directly
// from profile endpoints.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"`
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	GitHubID     int64     `json:"-"         db:"github_id"` // 0 for local accounts
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicAuthor returns the user as the resolved reference embedded in
// posts and comments.
func (u *User) PublicAuthor() Author {
	return Author{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}
