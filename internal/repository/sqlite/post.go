package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ecanov/bienestar-api/internal/model"
	"github.com/ecanov/bienestar-api/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// CreatePost inserts a community post, generating the ID and timestamp.
func (db *DB) CreatePost(ctx context.Context, post *model.CommunityPost) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO community_posts (id, user_id, author, content, likes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Author,
		post.Content,
		post.Likes,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting community post for user %s: %w", post.UserID, err)
	}

	return nil
}

// ListPosts returns the shared feed, newest first. The feed is global:
// every authenticated user sees every post.
func (db *DB) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.CommunityPost, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, author, content, likes, created_at
		 FROM community_posts
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing community posts: %w", err)
	}
	defer rows.Close()

	posts := []model.CommunityPost{}
	for rows.Next() {
		var p model.CommunityPost
		if err := rows.Scan(&p.ID, &p.UserID, &p.Author, &p.Content, &p.Likes, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning community post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating community posts: %w", err)
	}

	return posts, nil
}
