// Package auth verifies bearer tokens and enforces role and account
// status requirements for the admin plane.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/learnhub/admin-plane/pkg/errs"
	"github.com/learnhub/admin-plane/pkg/model"
)

// Principal is the verified identity behind a request.
type Principal struct {
	Sub   string     `json:"sub"`
	Role  model.Role `json:"role"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	IAT   time.Time  `json:"iat"`
	Exp   time.Time  `json:"exp"`
}

// Claims is the JWT claim set carried by platform tokens.
type Claims struct {
	Role  model.Role `json:"role"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens signed with the platform HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and checks a bearer header value and returns the
// principal it asserts. The header may carry an optional "Bearer " prefix.
func (v *Verifier) Verify(bearer string) (*Principal, error) {
	if bearer == "" {
		return nil, errs.New(errs.KindMissingToken, "authorization token is required")
	}
	raw := strings.TrimPrefix(bearer, "Bearer ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errs.New(errs.KindMissingToken, "authorization token is required")
	}

	segments := strings.Split(raw, ".")
	if len(segments) != 3 {
		return nil, errs.New(errs.KindMalformed, "token is not a valid JWT")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, errs.New(errs.KindExpired, "token has expired")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, errs.New(errs.KindBadSignature, "token signature verification failed")
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errs.New(errs.KindMalformed, "token is not a valid JWT")
		default:
			return nil, errs.Wrap(errs.KindBadSignature, "token verification failed", err)
		}
	}
	if !token.Valid {
		return nil, errs.New(errs.KindBadSignature, "token verification failed")
	}

	// Belt and braces: the decoded payload must match the claims the
	// library verified. A mismatch means the payload segment was swapped
	// after signing.
	if err := checkPayloadIntegrity(segments[1], claims); err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errs.New(errs.KindMalformed, "token is missing the subject claim")
	}
	if !claims.Role.Valid() {
		return nil, errs.New(errs.KindMalformed, "token carries an unknown role")
	}
	if claims.ExpiresAt == nil {
		return nil, errs.New(errs.KindMalformed, "token is missing the expiry claim")
	}
	if !time.Now().Before(claims.ExpiresAt.Time) {
		return nil, errs.New(errs.KindExpired, "token has expired")
	}

	principal := &Principal{
		Sub:   claims.Subject,
		Role:  claims.Role,
		Email: claims.Email,
		Name:  claims.Name,
		Exp:   claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		principal.IAT = claims.IssuedAt.Time
	}
	return principal, nil
}

func checkPayloadIntegrity(segment string, claims *Claims) error {
	payload, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return errs.New(errs.KindMalformed, "token payload is not valid base64url")
	}
	var decoded struct {
		Sub  string     `json:"sub"`
		Role model.Role `json:"role"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return errs.New(errs.KindMalformed, "token payload is not valid JSON")
	}
	if decoded.Sub != claims.Subject || decoded.Role != claims.Role {
		return errs.New(errs.KindTampered, "token payload does not match signed claims")
	}
	return nil
}

// Issue signs a token for the principal, valid for ttl. Used by the
// platform's auth plane and by tests.
func (v *Verifier) Issue(sub string, role model.Role, email, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  role,
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
