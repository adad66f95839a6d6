package security

import (
	"errors"
	"quizarena/internal/platform/config"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

func GenerateToken(userID, userType string, isAdmin bool) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   userID,
		"user_type": userType,
		"is_admin":  isAdmin,
		"exp":       time.Now().Add(config.AppConfig.JWTExp).Unix(),
		"iat":       time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

// Helper functions to extract claims, can be used in middleware or services
func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserTypeFromClaims(claims jwt.MapClaims) (string, error) {
	userType, ok := claims["user_type"].(string)
	if !ok {
		return "", errors.New("user_type claim is missing or not a string")
	}
	return userType, nil
}

func GetIsAdminFromClaims(claims jwt.MapClaims) bool {
	isAdmin, ok := claims["is_admin"].(bool)
	return ok && isAdmin
}
