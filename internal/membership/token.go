// internal/membership/token.go
package membership

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints and verifies the session tokens handed out by signin.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer for HS256 tokens with a 24h lifetime.
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: 24 * time.Hour}
}

// Issue signs a token identifying the student.
func (ti *TokenIssuer) Issue(studentID string, isAdmin bool) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   studentID,
		"admin": isAdmin,
		"iat":   now.Unix(),
		"exp":   now.Add(ti.ttl).Unix(),
	})
	return token.SignedString(ti.secret)
}

// Verify parses a token and returns the student identifier and admin flag.
func (ti *TokenIssuer) Verify(tokenString string) (string, bool, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return ti.secret, nil
	})
	if err != nil {
		return "", false, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", false, fmt.Errorf("invalid token")
	}
	sub, _ := claims["sub"].(string)
	admin, _ := claims["admin"].(bool)
	return sub, admin, nil
}
