package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"
	userIDKey           = "userID"
)

// NewAuthMiddleware accepts HS256 bearer tokens signed with secret and stores
// the subject claim as the requester id.
func NewAuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader(authorizationHeader)
		fields := strings.Fields(header)
		if len(fields) != 2 || !strings.EqualFold(fields[0], bearerScheme) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(http.StatusUnauthorized, "missing or malformed authorization header"))
			return
		}

		subject, err := parseSubject(fields[1], key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(http.StatusUnauthorized, "invalid or expired token"))
			return
		}

		c.Set(userIDKey, subject)
		c.Next()
	}
}

func parseSubject(token string, key []byte) (string, error) {
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func requesterID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
