package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: AlreadySubscribed(), want: CodeAlreadySubscribed},
		{err: fmt.Errorf("wrapped: %w", NotActive()), want: CodeNotActive},
		{err: errors.New("plain"), want: CodeServer},
		{err: InvalidPlan("gold"), want: CodeInvalidPlan},
	}

	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Fatalf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(NotFound("user not found")); got != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", got)
	}
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unknown errors, got %d", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(cause, http.StatusInternalServerError, CodeServer, "storage failure")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
}
