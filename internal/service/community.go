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
	MaxPostLength   = 5000
	MaxAuthorLength = 100
)

// CommunityService handles the shared post feed.
type CommunityService struct {
	repo   repository.PostRepository
	logger *slog.Logger
}

func NewCommunityService(repo repository.PostRepository, logger *slog.Logger) *CommunityService {
	return &CommunityService{repo: repo, logger: logger}
}

// Post publishes a message to the feed on behalf of user.
//
// author is a display-name override; when empty it falls back to the
// user's own subject (username, or email local part for accounts without
// one). The post is still attributed to user.ID regardless of the
// display name.
func (s *CommunityService) Post(ctx context.Context, user *model.User, content, author string) (*model.CommunityPost, error) {
	content = strings.TrimSpace(content)
	author = strings.TrimSpace(author)

	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if len(content) > MaxPostLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or less", MaxPostLength))
	}
	if len(author) > MaxAuthorLength {
		return nil, apperror.ValidationFailed("author",
			fmt.Sprintf("author must be %d characters or less", MaxAuthorLength))
	}

	if author == "" {
		author = displayName(user)
	}

	post := &model.CommunityPost{
		UserID:  user.ID,
		Author:  author,
		Content: content,
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("community post created",
		slog.String("id", post.ID),
		slog.String("userID", user.ID),
	)

	return post, nil
}

// List returns the shared feed, newest first.
func (s *CommunityService) List(ctx context.Context, limit, offset int) ([]model.CommunityPost, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	posts, err := s.repo.ListPosts(ctx, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return posts, nil
}

// displayName picks a feed display name for a user: the username, or the
// email local part for accounts that never set one.
func displayName(user *model.User) string {
	if user.Username != "" {
		return user.Username
	}
	return localPart(user.Email)
}
