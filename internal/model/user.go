// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Two login paths converge on this one record: a local username/password
// pair, and a Google identity. A user created locally has PasswordHash set
// and GoogleID empty; a user created from a Google callback has GoogleID
// set and PasswordHash empty. A later Google login for a local account
// fills in the Google fields without touching the local ones, so one email
// always maps to exactly one row regardless of which path came first.
//
// WHY PLAIN STRINGS FOR OPTIONAL FIELDS?
// Username, PasswordHash, GoogleID, and AvatarURL are all optional. We use
// the empty string as the "absent" value rather than *string pointers.
// The repository stores "" as SQL NULL so the UNIQUE constraints on
// username and google_id still admit any number of absent values.
type User struct {
	ID                 string    `json:"id"         db:"id"`
	Username           string    `json:"username"   db:"username"`   // empty for Google-only accounts that never set one
	Email              string    `json:"email"      db:"email"`      // always present, unique; secondary login key
	PasswordHash       string    `json:"-"          db:"password_hash"` // bcrypt digest; empty means password login is disabled
	GoogleID           string    `json:"-"          db:"google_id"`  // Google's stable subject identifier
	GoogleAccessToken  string    `json:"-"          db:"google_access_token"`
	GoogleRefreshToken string    `json:"-"          db:"google_refresh_token"`
	AvatarURL          string    `json:"avatarUrl"  db:"avatar_url"`
	CreatedAt          time.Time `json:"createdAt"  db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt"  db:"updated_at"`
}

// Subject returns the claim placed in this user's session tokens:
// the username, or the email for accounts that never set one.
func (u *User) Subject() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// HasGoogleTokens reports whether the user granted calendar access.
func (u *User) HasGoogleTokens() bool {
	return u.GoogleAccessToken != ""
}
