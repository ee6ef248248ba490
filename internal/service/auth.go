// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services accept primitives and return domain models and domain errors.
// They know nothing about HTTP, chi, or status codes, and they receive
// repository interfaces, never the concrete sqlite type, so tests can
// substitute in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ecanov/bienestar-api/internal/apperror"
	"github.com/ecanov/bienestar-api/internal/auth"
	"github.com/ecanov/bienestar-api/internal/model"
	"github.com/ecanov/bienestar-api/internal/repository"
)

// LinkOutcome reports which branch a Google login took, so callers and
// tests can assert the branch directly instead of diffing mutated fields.
type LinkOutcome int

const (
	// OutcomeCreated: first login for a never-before-seen email; a fresh
	// user was created from the Google profile.
	OutcomeCreated LinkOutcome = iota
	// OutcomeLinked: the email belonged to an existing account that had
	// no Google identity; the Google id was attached to it.
	OutcomeLinked
	// OutcomeUnchanged: the account was already linked; nothing but the
	// provider tokens moved.
	OutcomeUnchanged
)

func (o LinkOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeLinked:
		return "linked"
	default:
		return "unchanged"
	}
}

// AuthService resolves inbound credentials to user identities.
//
// Three entry protocols converge here: local registration, local login,
// and the Google callback. All of them end in the same place — a user
// row and, for the logins, a signed token minted by the caller.
type AuthService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a local-auth user from a username, email, and
// password.
//
// The pre-check is one combined lookup: an existing user holding either
// the username or the email rejects the whole registration with a
// duplicate error. Two registrations racing past the pre-check are
// arbitrated by the storage uniqueness constraint, which surfaces as the
// same duplicate error from CreateUser.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	if _, err := s.users.GetUserByUsernameOrEmail(ctx, username, email); err == nil {
		return nil, apperror.Duplicate("username or email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking for existing user: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// ErrDuplicate here means we lost a race with a concurrent
		// registration; it propagates as-is.
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login validates a username-or-email plus password pair.
//
// Every failure is the same invalid-credentials error: an unknown login
// key, a Google-only account with no password set, and a wrong password
// are indistinguishable to the caller. Anything else would let an
// attacker probe which emails have accounts.
func (s *AuthService) Login(ctx context.Context, login, password string) (*model.User, error) {
	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up login %q: %w", login, err)
	}

	if user.PasswordHash == "" {
		// Google-only account; password login is disabled for it.
		return nil, apperror.InvalidCredentials()
	}

	ok, err := s.passwords.Verify(user.PasswordHash, password)
	if err != nil {
		// Corrupt stored digest. An internal fault, never a 401: the
		// user's password might well be correct.
		return nil, fmt.Errorf("service/auth: verifying password for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, apperror.InvalidCredentials()
	}

	return user, nil
}

// LoginWithGoogle resolves a verified Google callback payload to a user,
// creating or linking as needed. The payload's own verification (the
// code exchange with Google) already happened in auth.GoogleProvider.
//
// Branching on the email:
//   - unseen email → create a user from the profile, username defaulted
//     to the email's local part (dropped entirely if that name is taken:
//     bob@gmail.com must not block bob@school.edu from ever logging in)
//   - existing account → fill google_id and avatar_url if absent, never
//     overwrite them; a locally chosen username or avatar survives every
//     later Google login
//
// The provider tokens are persisted on every callback. Google rotates
// access tokens per grant, and the refresh token only appears on the
// first consent, so each is stored when present and kept otherwise.
// Repeat callbacks are idempotent; "already linked" is not an error.
func (s *AuthService) LoginWithGoogle(ctx context.Context, gu *auth.GoogleUser) (*model.User, LinkOutcome, error) {
	if gu == nil {
		return nil, OutcomeUnchanged, fmt.Errorf("service/auth: google user must not be nil")
	}

	user, err := s.users.GetUserByEmail(ctx, gu.Email)
	switch {
	case err == nil:
		return s.linkGoogle(ctx, user, gu)
	case errors.Is(err, apperror.ErrNotFound):
		return s.createFromGoogle(ctx, gu)
	default:
		return nil, OutcomeUnchanged, fmt.Errorf("service/auth: looking up email %q: %w", gu.Email, err)
	}
}

// createFromGoogle handles the unseen-email branch.
func (s *AuthService) createFromGoogle(ctx context.Context, gu *auth.GoogleUser) (*model.User, LinkOutcome, error) {
	user := &model.User{
		Username:           localPart(gu.Email),
		Email:              gu.Email,
		GoogleID:           gu.SubjectID,
		AvatarURL:          gu.Picture,
		GoogleAccessToken:  gu.AccessToken,
		GoogleRefreshToken: gu.RefreshToken,
	}

	err := s.users.CreateUser(ctx, user)
	if err == nil {
		s.logger.Info("user created from google login",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
		return user, OutcomeCreated, nil
	}

	if !errors.Is(err, apperror.ErrDuplicate) {
		return nil, OutcomeUnchanged, fmt.Errorf("service/auth: creating user from google profile: %w", err)
	}

	// Two possible collisions hide behind ErrDuplicate:
	//  1. a concurrent callback created this email first — re-fetch and
	//     fall through to linking (idempotence)
	//  2. the defaulted username is taken by an unrelated account —
	//     retry without a username; the account logs in by email
	existing, lookupErr := s.users.GetUserByEmail(ctx, gu.Email)
	if lookupErr == nil {
		return s.linkGoogle(ctx, existing, gu)
	}
	if !errors.Is(lookupErr, apperror.ErrNotFound) {
		return nil, OutcomeUnchanged, fmt.Errorf("service/auth: re-checking email %q: %w", gu.Email, lookupErr)
	}

	user.Username = ""
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, OutcomeUnchanged, fmt.Errorf("service/auth: creating user from google profile: %w", err)
	}

	s.logger.Info("user created from google login without default username",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)
	return user, OutcomeCreated, nil
}

// linkGoogle handles the existing-account branch: fill-if-absent on the
// identity fields, refresh the provider tokens.
func (s *AuthService) linkGoogle(ctx context.Context, user *model.User, gu *auth.GoogleUser) (*model.User, LinkOutcome, error) {
	outcome := OutcomeUnchanged

	if user.GoogleID == "" {
		user.GoogleID = gu.SubjectID
		outcome = OutcomeLinked
	}
	if user.AvatarURL == "" {
		user.AvatarURL = gu.Picture
	}
	if gu.AccessToken != "" {
		user.GoogleAccessToken = gu.AccessToken
	}
	if gu.RefreshToken != "" {
		user.GoogleRefreshToken = gu.RefreshToken
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, OutcomeUnchanged, fmt.Errorf("service/auth: updating user %s after google login: %w", user.ID, err)
	}

	if outcome == OutcomeLinked {
		s.logger.Info("google identity linked to existing account",
			slog.String("userID", user.ID),
			slog.String("username", user.Username),
		)
	}

	return user, outcome, nil
}

// ResolveSubject maps a token subject claim back to a user, with the
// same username-then-email order as login. Implements
// auth.SubjectResolver for the RequireAuth middleware.
//
// A valid token whose subject matches no user (the row predates a
// database reset, say) is unauthorized, not an internal error.
func (s *AuthService) ResolveSubject(ctx context.Context, subject string) (*model.User, error) {
	user, err := s.users.GetUserByLogin(ctx, subject)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized()
		}
		return nil, fmt.Errorf("service/auth: resolving subject: %w", err)
	}
	return user, nil
}

// localPart returns the text before the "@" of an email address, the
// default username for accounts created by a Google login.
func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
