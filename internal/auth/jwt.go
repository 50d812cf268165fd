package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the "role" claim value granting access to every item.
const RoleAdmin = "admin"

// JWTAuthenticator validates "Bearer <token>" headers signed with HS256.
// The "sub" claim is the identity; role=admin or a subject equal to
// adminIdentity marks the caller as admin.
type JWTAuthenticator struct {
	secret        []byte
	adminIdentity string
}

// NewJWTAuthenticator creates a JWTAuthenticator.
func NewJWTAuthenticator(secret, adminIdentity string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), adminIdentity: adminIdentity}
}

// Authenticate implements Authenticator.
func (a *JWTAuthenticator) Authenticate(_ context.Context, header string) (Identity, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return Identity{}, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidCredentials
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrInvalidCredentials
	}
	role, _ := claims["role"].(string)

	return Identity{
		Subject: sub,
		Admin:   role == RoleAdmin || (a.adminIdentity != "" && sub == a.adminIdentity),
	}, nil
}

// IssueToken creates a signed token for subject, valid for ttl.
func IssueToken(secret, subject string, admin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if admin {
		claims["role"] = RoleAdmin
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
