// Package identity consumes the output of the external Identity Resolver. The core never issues or verifies
// credentials itself beyond decoding the bearer token it is handed; it only trusts the claims it carries.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the verified-identity record the Group Router consumes to resolve a caller's role for a group.
type Identity struct {
	UserID         uuid.UUID
	VerifiedEmails []string
	PrimaryEmail   string
	DisplayName    string
}

// HasVerifiedEmail reports whether email matches one of the identity's verified emails, case-folded.
func (id Identity) HasVerifiedEmail(email string) bool {
	if email == "" {
		return false
	}
	folded := strings.ToLower(email)
	for _, e := range id.VerifiedEmails {
		if strings.ToLower(e) == folded {
			return true
		}
	}
	return false
}

// claims holds the JWT claims the Identity Resolver embeds in its bearer tokens.
type claims struct {
	jwt.RegisteredClaims
	VerifiedEmails []string `json:"verified_emails"`
	PrimaryEmail   string   `json:"primary_email"`
	DisplayName    string   `json:"display_name"`
}

// NewToken creates a signed JWT carrying an identity record. It exists so tests and local tooling can mint tokens
// without standing up a real Identity Resolver.
func NewToken(id Identity, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("auth secret must not be empty")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		VerifiedEmails: id.VerifiedEmails,
		PrimaryEmail:   id.PrimaryEmail,
		DisplayName:    id.DisplayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}

// Resolve parses and validates a bearer token, enforcing HMAC signing, and returns the identity it carries.
func Resolve(tokenStr, secret string) (Identity, error) {
	c := &claims{}

	token, err := jwt.ParseWithClaims(tokenStr, c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token subject: %w", err)
	}

	return Identity{
		UserID:         userID,
		VerifiedEmails: c.VerifiedEmails,
		PrimaryEmail:   c.PrimaryEmail,
		DisplayName:    c.DisplayName,
	}, nil
}
