package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ecanov/bienestar-api/internal/apperror"
	"github.com/ecanov/bienestar-api/internal/model"
	"github.com/ecanov/bienestar-api/internal/repository"
)

const (
	MaxMoodLength    = 50
	MaxNoteLength    = 2000
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// MoodService handles the personal mood journal.
//
// Every operation takes the gate-resolved user ID, never a client-supplied
// one: a user can only ever read or write their own entries.
type MoodService struct {
	repo   repository.MoodRepository
	logger *slog.Logger
}

func NewMoodService(repo repository.MoodRepository, logger *slog.Logger) *MoodService {
	return &MoodService{repo: repo, logger: logger}
}

// Log records a mood entry for the given user.
func (s *MoodService) Log(ctx context.Context, userID, mood, note string) (*model.MoodEntry, error) {
	mood = strings.TrimSpace(mood)

	if mood == "" {
		return nil, apperror.ValidationFailed("mood", "mood is required")
	}
	if len(mood) > MaxMoodLength {
		return nil, apperror.ValidationFailed("mood",
			fmt.Sprintf("mood must be %d characters or less", MaxMoodLength))
	}
	if len(note) > MaxNoteLength {
		return nil, apperror.ValidationFailed("note",
			fmt.Sprintf("note must be %d characters or less", MaxNoteLength))
	}

	entry := &model.MoodEntry{
		UserID: userID,
		Mood:   mood,
		Note:   strings.TrimSpace(note),
	}

	if err := s.repo.CreateMood(ctx, entry); err != nil {
		s.logger.Error("failed to log mood",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("logging mood: %w", err)
	}

	s.logger.Info("mood logged",
		slog.String("id", entry.ID),
		slog.String("userID", userID),
		slog.String("mood", entry.Mood),
	)

	return entry, nil
}

// List returns the user's mood entries, newest first.
func (s *MoodService) List(ctx context.Context, userID string, limit, offset int) ([]model.MoodEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.repo.ListMoodsByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list moods",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing moods: %w", err)
	}

	return entries, nil
}
