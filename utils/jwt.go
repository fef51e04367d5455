package utils

import (
	"errors"
	"time"

	"campuspark/config"
	"campuspark/models"

	"github.com/golang-jwt/jwt"
)

func secretKey() []byte {
	return []byte(config.AppConfig.JWTSecret)
}

// GenerateToken creates a signed JWT carrying the identity claims.
// The token expires after the specified duration.
func GenerateToken(identity models.Identity, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  identity.ID,
		"name": identity.DisplayName,
		"role": string(identity.Role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secretKey())
}

// ValidateToken parses and validates a token string and returns the token if valid.
func ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey(), nil
	})
}

// IdentityFromToken extracts the identity claims from a valid JWT token string.
func IdentityFromToken(tokenString string) (*models.Identity, error) {
	token, err := ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("token does not contain a valid 'sub' claim")
	}
	name, _ := claims["name"].(string)
	if name == "" {
		return nil, errors.New("token does not contain a valid 'name' claim")
	}
	role, _ := claims["role"].(string)

	return &models.Identity{
		ID:          sub,
		DisplayName: name,
		Role:        models.ParseRole(role),
	}, nil
}
