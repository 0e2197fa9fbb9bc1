package middleware

import (
	"slices"
	"strings"

	"github.com/fashalt/fashaltbackend/apperr"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/fashalt/fashaltbackend/services"
	"github.com/fashalt/fashaltbackend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	// TokenCookie carries the session JWT.
	TokenCookie = utils.AuthCookieName

	requesterKey = "requester"
)

func tokenFrom(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// reject hands the failure to ErrorHandler and stops the chain.
func reject(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// AuthMiddleware verifies the session token from the cookie or a Bearer header.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := tokenFrom(c)
		if tokenStr == "" {
			reject(c, apperr.Auth("Please login to access this resource"))
			return
		}

		claims, err := utils.ValidateToken(tokenStr, secret)
		if err != nil {
			reject(c, apperr.Auth("Invalid or expired token"))
			return
		}
		id, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			reject(c, apperr.Auth("Invalid or expired token"))
			return
		}

		c.Set(requesterKey, services.Requester{ID: id, Role: models.Role(claims.Role)})
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, ok := RequesterFrom(c)
		if !ok {
			reject(c, apperr.Auth("Please login to access this resource"))
			return
		}
		if !slices.Contains(roles, req.Role) {
			reject(c, apperr.Forbidden("You are not allowed to access this resource"))
			return
		}
		c.Next()
	}
}

func RequesterFrom(c *gin.Context) (services.Requester, bool) {
	v, ok := c.Get(requesterKey)
	if !ok {
		return services.Requester{}, false
	}
	req, ok := v.(services.Requester)
	return req, ok
}
