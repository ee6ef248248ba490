// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the only implementation;
// tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/ecanov/bienestar-api/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository is the storage collaborator for user identities.
//
// Uniqueness on email, username (when set), and google_id (when set) is
// enforced by the store itself. The service layer's pre-checks are an
// optimization for friendly error messages; a concurrent writer slipping
// past them must still fail at the constraint, surfacing as
// apperror.ErrDuplicate from CreateUser.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// GetUserByLogin resolves a login key: username lookup first, then
	// email. This is the single resolution path shared by password login,
	// the auth middleware, and token subject resolution.
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)

	// GetUserByUsernameOrEmail is the combined registration pre-check:
	// any user holding either key collides with the whole registration.
	GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)

	// UpdateUser persists the mutable identity fields (google link,
	// avatar, provider tokens). Username, email, and password hash never
	// change after creation; there is no rename or password-change flow.
	UpdateUser(ctx context.Context, user *model.User) error
}

type MoodRepository interface {
	CreateMood(ctx context.Context, entry *model.MoodEntry) error
	ListMoodsByUser(ctx context.Context, userID string, opts ListOptions) ([]model.MoodEntry, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.CommunityPost) error
	ListPosts(ctx context.Context, opts ListOptions) ([]model.CommunityPost, error)
}
