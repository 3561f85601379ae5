package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/finwise/ledger-api/pkg/helpers"
	"github.com/finwise/ledger-api/pkg/response"
)

const CtxUserIDKey = "userID"

// BearerToken extracts the credential from the Authorization header,
// falling back to the access_token cookie for the browser client.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if tok, err := c.Cookie("access_token"); err == nil {
		return tok
	}
	return ""
}

// Auth is the authentication gate for everything that touches ledger
// state. It verifies the bearer token, checks the server-side session
// when Redis is configured, and sets the resolved user id in the Gin
// context. Requests with missing or invalid tokens never reach a
// handler.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "missing bearer token", gin.H{"kind": "invalid_token"})
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			kind, msg := "invalid_token", "invalid token"
			if errors.Is(err, jwtlib.ErrTokenExpired) {
				kind, msg = "expired_token", "expired token"
			}
			resp := response.Error[any](c, http.StatusUnauthorized, msg, gin.H{"kind": kind})
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}

		if rdb != nil {
			data, err := rdb.HGetAll(c.Request.Context(), "user:session:"+claims.UserID).Result()
			if err != nil || len(data) == 0 || (claims.SessionID != "" && data["sid"] != claims.SessionID) {
				resp := response.Error[any](c, http.StatusUnauthorized, "session not found", gin.H{"kind": "invalid_token"})
				c.AbortWithStatusJSON(resp.Status, resp)
				return
			}
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}
