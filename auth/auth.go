// Package auth covers password hashing and the signed session tokens the
// API hands out at login.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenExpiryDays = 7

// HashPassword hashes a password with bcrypt and a random salt.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
func VerifyPassword(password, passwordHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil
}

// Claims is the token payload. Subject carries the stringified user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID parses the numeric user id out of the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// CreateToken signs a 7-day HS256 token for the user. The secret comes
// from JAM_JWT_SECRET and must be set.
func CreateToken(secret string, userID int64, email string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("JAM_JWT_SECRET is not set")
	}
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(tokenExpiryDays * 24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// DecodeToken verifies the token's signature and expiry and returns its
// claims.
func DecodeToken(secret, token string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("JAM_JWT_SECRET is not set")
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &claims, nil
}
