package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ecanov/bienestar-api/internal/model"
	"github.com/ecanov/bienestar-api/internal/repository"
)

var _ repository.MoodRepository = (*DB)(nil)

// CreateMood inserts a mood entry, generating the ID and timestamp.
func (db *DB) CreateMood(ctx context.Context, entry *model.MoodEntry) error {
	entry.ID = xid.New().String()
	entry.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO mood_entries (id, user_id, mood, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.Mood,
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting mood entry for user %s: %w", entry.UserID, err)
	}

	return nil
}

// ListMoodsByUser returns the user's mood entries, newest first.
func (db *DB) ListMoodsByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]model.MoodEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, mood, note, created_at
		 FROM mood_entries
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		userID, opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing mood entries for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := []model.MoodEntry{}
	for rows.Next() {
		var e model.MoodEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning mood entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating mood entries: %w", err)
	}

	return entries, nil
}
