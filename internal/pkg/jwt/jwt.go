package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/turfbook/chat-service/internal/model"
)

type Generator struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *Generator {
	return &Generator{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (g *Generator) GenerateAccessToken(userID, role string) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(g.ttl)

	claims := model.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(g.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access JWT token: %w", err)
	}

	return tokenString, expiresAt.Unix(), nil
}

func (g *Generator) ValidateAccessToken(tokenString string) (*model.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse access JWT token: %w", err)
	}

	claims, ok := token.Claims.(*model.AccessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access JWT token")
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("access JWT token has no subject")
	}

	return claims, nil
}
