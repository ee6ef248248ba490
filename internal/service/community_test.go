package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ecanov/bienestar-api/internal/apperror"
	"github.com/ecanov/bienestar-api/internal/model"
	"github.com/ecanov/bienestar-api/internal/repository"
)

type fakePostRepo struct {
	posts []model.CommunityPost
}

func (f *fakePostRepo) CreatePost(_ context.Context, post *model.CommunityPost) error {
	post.ID = "post-1"
	f.posts = append([]model.CommunityPost{*post}, f.posts...)
	return nil
}

func (f *fakePostRepo) ListPosts(_ context.Context, opts repository.ListOptions) ([]model.CommunityPost, error) {
	result := append([]model.CommunityPost(nil), f.posts...)
	if opts.Offset >= len(result) {
		return []model.CommunityPost{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

var _ repository.PostRepository = (*fakePostRepo)(nil)

func newTestCommunityService() (*CommunityService, *fakePostRepo) {
	repo := &fakePostRepo{}
	return NewCommunityService(repo, testServiceLogger()), repo
}

func TestCommunityPost(t *testing.T) {
	svc, _ := newTestCommunityService()
	user := &model.User{ID: "user-1", Username: "ana", Email: "ana@example.com"}

	post, err := svc.Post(context.Background(), user, "  hoy fue un buen día  ", "")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if post.Content != "hoy fue un buen día" {
		t.Errorf("content not trimmed: %q", post.Content)
	}
	if post.Author != "ana" {
		t.Errorf("author = %q, want username fallback", post.Author)
	}
	if post.UserID != "user-1" {
		t.Errorf("UserID = %q, posts must be attributed to the author", post.UserID)
	}
}

func TestCommunityPostAuthorOverride(t *testing.T) {
	svc, _ := newTestCommunityService()
	user := &model.User{ID: "user-1", Username: "ana", Email: "ana@example.com"}

	post, err := svc.Post(context.Background(), user, "hola", "Profe Ana")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if post.Author != "Profe Ana" {
		t.Errorf("author = %q, want override", post.Author)
	}
	if post.UserID != "user-1" {
		t.Error("display-name override must not change attribution")
	}
}

func TestCommunityPostAuthorForUsernamelessAccount(t *testing.T) {
	// Accounts created by a Google login that hit a username collision
	// have no username; the feed falls back to the email local part.
	svc, _ := newTestCommunityService()
	user := &model.User{ID: "user-2", Email: "bob@gmail.com"}

	post, err := svc.Post(context.Background(), user, "hola", "")
	if err != nil {
		t.Fatalf("Post returned error: %v", err)
	}
	if post.Author != "bob" {
		t.Errorf("author = %q, want email local part", post.Author)
	}
}

func TestCommunityPostValidation(t *testing.T) {
	svc, _ := newTestCommunityService()
	user := &model.User{ID: "user-1", Username: "ana", Email: "ana@example.com"}

	cases := []struct {
		name, content, author string
	}{
		{"empty content", "", ""},
		{"whitespace content", "   ", ""},
		{"content too long", strings.Repeat("a", MaxPostLength+1), ""},
		{"author too long", "hola", strings.Repeat("a", MaxAuthorLength+1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Post(context.Background(), user, tc.content, tc.author)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCommunityListNewestFirst(t *testing.T) {
	svc, _ := newTestCommunityService()
	user := &model.User{ID: "user-1", Username: "ana", Email: "ana@example.com"}

	for _, content := range []string{"primero", "segundo", "tercero"} {
		if _, err := svc.Post(context.Background(), user, content, ""); err != nil {
			t.Fatalf("seeding post: %v", err)
		}
	}

	posts, err := svc.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(posts))
	}
	if posts[0].Content != "tercero" {
		t.Errorf("feed must be newest first, got %q on top", posts[0].Content)
	}
}
