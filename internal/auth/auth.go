// Package auth reads the caller's identity from a bearer token.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "userID"
	ContextRole   = "role"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

func GenerateToken(secret []byte, userID int64, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		Role:   role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(ttl).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(secret []byte, signedToken string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		signedToken,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return secret, nil
		},
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// bearer extracts the token from the cookie or the Authorization header.
// ok is false when the request carries no credentials at all.
func bearer(c *gin.Context) (token string, ok bool, err error) {
	if cookie, err := c.Cookie("token"); err == nil && cookie != "" {
		return cookie, true, nil
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false, nil
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", true, errors.New("invalid Authorization header format")
	}
	return parts[1], true, nil
}

// Optional sets the caller's user id and role when a valid token is present.
// Anonymous requests pass through; a malformed or expired token is rejected.
func Optional(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok, err := bearer(c)
		if !ok {
			c.Next()
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			return
		}

		claims, err := ParseToken(secret, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid authorization token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// ActorID returns the authenticated user id, or nil for anonymous requests.
func ActorID(c *gin.Context) *int64 {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return nil
	}
	id, ok := v.(int64)
	if !ok {
		return nil
	}
	return &id
}
