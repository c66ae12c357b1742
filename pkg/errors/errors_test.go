package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "resource not found",
			},
			expected: "NOT_FOUND: resource not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("store unreachable"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: store unreachable)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Internal("wrapped", originalErr)

	unwrapped := errors.Unwrap(appErr)
	if unwrapped != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Property"), CodeNotFound, http.StatusNotFound},
		{"not found with id", NotFoundWithID("Booking", "abc123"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad input", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("missing date range"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("token required"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("admin only"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("dates taken"), CodeConflict, http.StatusConflict},
		{"internal", Internal("boom", errors.New("cause")), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.appErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.appErr.Code)
			}
			if tt.appErr.StatusCode() != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.appErr.StatusCode())
			}
		})
	}
}

func TestNotFoundWithID_Details(t *testing.T) {
	err := NotFoundWithID("MemberTag", "tag-1")

	if err.Details["resource"] != "MemberTag" {
		t.Errorf("expected resource detail 'MemberTag', got %v", err.Details["resource"])
	}
	if err.Details["id"] != "tag-1" {
		t.Errorf("expected id detail 'tag-1', got %v", err.Details["id"])
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Conflict("already booked")
	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError should return the same AppError")
	}

	plain := errors.New("plain error")
	converted := AsAppError(plain)
	if converted.Code != CodeInternal {
		t.Errorf("expected plain errors to convert to %s, got %s", CodeInternal, converted.Code)
	}
	if !errors.Is(converted, plain) {
		t.Errorf("converted error should wrap the original")
	}
}
