package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the validity window of an issued token. Tokens are
// stateless; there is no revocation list.
const TokenTTL = 7 * 24 * time.Hour

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Identity is the (user id, role) pair carried by a verified token.
type Identity struct {
	UserID int
	Role   string
}

func GenerateToken(secret []byte, userID int, role string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(TokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func ParseToken(secret []byte, tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}
	uidFloat, ok := claims["user_id"].(float64)
	if !ok {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleUser
	}
	return Identity{UserID: int(uidFloat), Role: role}, nil
}
