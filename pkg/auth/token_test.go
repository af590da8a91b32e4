package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
)

const testSecret = "unit-test-secret"

func issue(t *testing.T, v *Verifier, role model.Role, ttl time.Duration) string {
	t.Helper()
	token, err := v.Issue("u-1", role, "admin@learnhub.test", "Admin", ttl)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

func TestVerifier_HappyPath(t *testing.T) {
	v := NewVerifier(testSecret)
	token := issue(t, v, model.RoleSuperAdmin, time.Hour)

	principal, err := v.Verify("Bearer " + token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if principal.Sub != "u-1" {
		t.Errorf("Sub = %q, want %q", principal.Sub, "u-1")
	}
	if principal.Role != model.RoleSuperAdmin {
		t.Errorf("Role = %q, want %q", principal.Role, model.RoleSuperAdmin)
	}
	if principal.Email != "admin@learnhub.test" {
		t.Errorf("Email = %q", principal.Email)
	}
	if !principal.Exp.After(time.Now()) {
		t.Error("Exp should be in the future")
	}
}

func TestVerifier_NoBearerPrefix(t *testing.T) {
	v := NewVerifier(testSecret)
	token := issue(t, v, model.RoleAdmin, time.Hour)

	if _, err := v.Verify(token); err != nil {
		t.Errorf("Verify without Bearer prefix should work, got %v", err)
	}
}

func TestVerifier_Rejections(t *testing.T) {
	v := NewVerifier(testSecret)
	other := NewVerifier("different-secret")
	valid := issue(t, v, model.RoleSuperAdmin, time.Hour)

	tests := []struct {
		name   string
		bearer string
		want   errs.Kind
	}{
		{"missing", "", errs.KindMissingToken},
		{"bearer only", "Bearer ", errs.KindMissingToken},
		{"two segments", "aaaa.bbbb", errs.KindMalformed},
		{"garbage", "not-a-token", errs.KindMalformed},
		{"four segments", valid + ".extra", errs.KindMalformed},
		{"wrong secret", issue(t, other, model.RoleSuperAdmin, time.Hour), errs.KindBadSignature},
		{"expired", issue(t, v, model.RoleSuperAdmin, -time.Minute), errs.KindExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.bearer)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if got := errs.KindOf(err); got != tt.want {
				t.Errorf("kind = %s, want %s", got, tt.want)
			}
		})
	}
}

// Replacing the payload segment of a signed token must be rejected.
func TestVerifier_SwappedPayload(t *testing.T) {
	v := NewVerifier(testSecret)
	token := issue(t, v, model.RoleStudent, time.Hour)

	forged := base64.RawURLEncoding.EncodeToString([]byte(
		`{"sub":"u-1","role":"super_admin","exp":` + "9999999999" + `}`))
	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + forged + "." + parts[2]

	_, err := v.Verify("Bearer " + tampered)
	if err == nil {
		t.Fatal("tampered token accepted")
	}
	kind := errs.KindOf(err)
	if kind != errs.KindTampered && kind != errs.KindBadSignature {
		t.Errorf("kind = %s, want TAMPERED or BAD_SIGNATURE", kind)
	}
}

func TestVerifier_UnknownRole(t *testing.T) {
	v := NewVerifier(testSecret)
	token, err := v.Issue("u-1", model.Role("root"), "x@y.z", "X", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := v.Verify(token); !errs.Is(err, errs.KindMalformed) {
		t.Errorf("Verify(unknown role) = %v, want MALFORMED", err)
	}
}
