package model

import "time"

// CommunityPost is a message on the shared community feed.
//
// Author is a display name, not a foreign key. It defaults to the posting
// user's username but can be overridden per post, so renaming an account
// never rewrites the history of the feed.
type CommunityPost struct {
	ID        string    `json:"id"        db:"id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Author    string    `json:"author"    db:"author"`
	Content   string    `json:"content"   db:"content"`
	Likes     int       `json:"likes"     db:"likes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
