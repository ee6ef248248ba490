package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFound(t *testing.T) {
	err := NotFound("user", "abc123")

	if !errors.Is(err, ErrNotFound) {
		t.Error("NotFound() should wrap ErrNotFound")
	}
	if err.Message != "user not found with id abc123" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestValidationFailed(t *testing.T) {
	err := ValidationFailed("email", "email is required")

	if !errors.Is(err, ErrValidation) {
		t.Error("ValidationFailed() should wrap ErrValidation")
	}
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}

func TestDuplicate(t *testing.T) {
	err := Duplicate("username or email already registered")

	if !errors.Is(err, ErrDuplicate) {
		t.Error("Duplicate() should wrap ErrDuplicate")
	}
}

func TestInvalidCredentials_UniformMessage(t *testing.T) {
	// The message must not leak which part of the credentials was wrong.
	err := InvalidCredentials()

	if !errors.Is(err, ErrInvalidCreds) {
		t.Error("InvalidCredentials() should wrap ErrInvalidCreds")
	}
	if err.Message != "incorrect username or password" {
		t.Errorf("unexpected message: %q", err.Message)
	}
}

func TestUnauthorized(t *testing.T) {
	err := Unauthorized()

	if !errors.Is(err, ErrUnauthorized) {
		t.Error("Unauthorized() should wrap ErrUnauthorized")
	}
}

// errors.Is must keep matching after the AppError is wrapped again by a
// service layer with fmt.Errorf("%w", ...).
func TestUnwrap_ThroughWrappingChain(t *testing.T) {
	inner := Duplicate("email already registered")
	outer := fmt.Errorf("registering user: %w", inner)

	if !errors.Is(outer, ErrDuplicate) {
		t.Error("errors.Is should find ErrDuplicate through the wrapping chain")
	}

	var appErr *AppError
	if !errors.As(outer, &appErr) {
		t.Fatal("errors.As should extract the *AppError")
	}
	if appErr.Message != "email already registered" {
		t.Errorf("unexpected message: %q", appErr.Message)
	}
}

func TestError_ReturnsMessage(t *testing.T) {
	err := &AppError{Err: ErrValidation, Message: "mood is required"}
	if err.Error() != "mood is required" {
		t.Errorf("Error() = %q, want %q", err.Error(), "mood is required")
	}
}
