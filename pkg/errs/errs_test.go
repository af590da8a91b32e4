package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindMissingToken, http.StatusUnauthorized},
		{KindExpired, http.StatusUnauthorized},
		{KindMalformed, http.StatusUnauthorized},
		{KindBadSignature, http.StatusUnauthorized},
		{KindTampered, http.StatusUnauthorized},
		{KindForbiddenRole, http.StatusForbidden},
		{KindForbiddenStatus, http.StatusForbidden},
		{KindLastSuperAdmin, http.StatusForbidden},
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindBadFormat, http.StatusBadRequest},
		{KindAuditFailed, http.StatusInternalServerError},
		{KindStoreFailed, http.StatusInternalServerError},
		{KindTimeout, http.StatusGatewayTimeout},
		{Kind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	err := New(KindNotFound, "user not found")
	if got := KindOf(err); got != KindNotFound {
		t.Errorf("KindOf = %s, want %s", got, KindNotFound)
	}

	wrapped := fmt.Errorf("handling request: %w", err)
	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf through wrap = %s, want %s", got, KindNotFound)
	}

	if got := KindOf(errors.New("plain")); got != KindStoreFailed {
		t.Errorf("KindOf(plain) = %s, want %s", got, KindStoreFailed)
	}
}

func TestValidationPayload(t *testing.T) {
	err := Validation("role", "required", "role is required")
	if err.Kind != KindValidation {
		t.Errorf("kind = %s, want %s", err.Kind, KindValidation)
	}
	if err.Field != "role" || err.Rule != "required" {
		t.Errorf("payload = (%s, %s), want (role, required)", err.Field, err.Rule)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindStoreFailed, "query failed", cause)

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
	if !Is(err, KindStoreFailed) {
		t.Error("Is should match the kind")
	}
	if Is(err, KindNotFound) {
		t.Error("Is should not match a different kind")
	}
}
