package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wrath-m/boilerplate-express/internal/app/models"
)

const resetPurpose = "password_reset"

type resetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// issueResetToken signs a short-lived single-purpose token carrying the user
// id as subject.
func issueResetToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := resetClaims{
		Purpose: resetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return signed, nil
}

// verifyResetToken validates signature, purpose and expiry and returns the
// user id.
func verifyResetToken(secret, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &resetClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("reset token rejected: %w", models.ErrTokenExpired)
	}

	claims, ok := token.Claims.(*resetClaims)
	if !ok || claims.Purpose != resetPurpose || claims.Subject == "" {
		return "", fmt.Errorf("reset token malformed: %w", models.ErrTokenExpired)
	}
	return claims.Subject, nil
}
