package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or
	// signed with the wrong key.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoOrganization is returned when a valid token carries no
	// organization claim.
	ErrNoOrganization = errors.New("token has no organization")
)

// Claims is the JWT payload carried by every authenticated request.
type Claims struct {
	OrganizationID string `json:"org_id"`
	jwt.RegisteredClaims
}

// Identity is the caller extracted from a verified token.
type Identity struct {
	UserID         string
	OrganizationID string
}

// Verifier validates bearer tokens with a shared HMAC secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token string and returns the caller identity.
func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	if claims.OrganizationID == "" {
		return Identity{}, ErrNoOrganization
	}
	return Identity{UserID: claims.Subject, OrganizationID: claims.OrganizationID}, nil
}

// GenerateToken signs a token for the given user and organization.
func GenerateToken(secret, userID, organizationID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		OrganizationID: organizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

type contextKey struct{}

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFrom extracts the caller identity stored by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
