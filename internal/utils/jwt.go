// Package utils provides helpers for issuing the JWTs the API accepts.
package utils

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles accepted on planning endpoints.
const (
	RoleOrganizer = "ORGANIZER"
	RoleAdmin     = "ADMIN"
)

// Claims is the token payload: the organizer id in sub plus a role.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AccessToken is a signed HS256 JWT with its expiry.
//
// Fields:
//  Token – the serialized JWT string.
//  Exp   – UTC expiration time.
type AccessToken struct {
	Token string    `json:"token"`
	Exp   time.Time `json:"expires_at"`
}

// ErrInvalidToken covers every parse or validation failure.
var ErrInvalidToken = errors.New("invalid token")

// NewAccessToken signs a token for userID with the given role that
// expires ttlMin minutes from now.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("empty signing secret")
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies raw with secret and returns the user id and
// role.  Only HMAC-signed tokens with a numeric subject are accepted.
func ParseAccessToken(secret, raw string) (uint64, string, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return 0, "", ErrInvalidToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, "", ErrInvalidToken
	}
	return id, claims.Role, nil
}
