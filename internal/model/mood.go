package model

import "time"

// MoodEntry is one logged mood for one user.
// Entries are append-only: there is no edit or delete flow.
type MoodEntry struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Mood      string    `json:"mood"      db:"mood"` // free-form label, e.g. "happy", "stressed"
	Note      string    `json:"note"      db:"note"` // optional
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
