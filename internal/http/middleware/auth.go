// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. Requests must carry
// "Authorization: Bearer <JWT>" signed with the configured HMAC secret; the
// token's "sub" claim is the caller's username and is stashed in the Gin
// context for handlers and downstream middleware (rate limiting, logging).
//
// The middleware only establishes WHO is calling. Whether that caller may
// touch a given user's data is decided in the service layer, which compares
// the verified username against the owner of the target record.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// usernameKey is the Gin context key under which the verified caller
// username is stored.
const usernameKey = "username"

// Username returns the verified caller username stored by Auth. The second
// return value reports presence; handlers must treat absence as an
// unauthenticated request.
func Username(c *gin.Context) (string, bool) {
	v, ok := c.Get(usernameKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// Auth returns a Gin middleware that verifies an HS256 bearer token and
// stores its subject claim in the context. Requests without a valid token
// are rejected with 401 and a standard error envelope.
//
// Token issuance is out of scope for this service; any issuer sharing the
// secret (e.g. the login service) produces accepted tokens.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		if raw == "" {
			unauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(raw, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			unauthorized(c, "authorization header must be a bearer token")
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			unauthorized(c, "token expired or invalid")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "token expired or invalid")
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			unauthorized(c, "token has no subject")
			return
		}

		c.Set(usernameKey, sub)
		c.Next()
	}
}

// unauthorized aborts with a 401 response in the shared envelope shape.
func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
