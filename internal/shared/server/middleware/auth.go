package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lexease-backend/internal/shared/auth"
	"lexease-backend/internal/shared/server/respond"
)

const (
	userIDKey      = "userId"
	isGuestKey     = "isGuest"
	userEmailKey   = "userEmail"
	userNameKey    = "userName"
	userPictureKey = "userPicture"

	guestPrefix = "guest:"
)

// Auth resolves the caller from a Bearer JWT or an X-Guest-Id header.
// Browsers cannot set headers on WebSocket upgrades, so those requests may
// pass the same values as ?token= or ?guestId= query parameters.
func Auth(publicPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		token, hasToken, ok := bearerToken(c)
		if !ok {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
			return
		}
		if hasToken {
			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "missing or invalid token", nil)
				return
			}
			c.Set(userIDKey, claims.Sub)
			c.Set(isGuestKey, false)
			setIfNotEmpty(c, userEmailKey, claims.Email)
			setIfNotEmpty(c, userNameKey, claims.Name)
			setIfNotEmpty(c, userPictureKey, claims.Picture)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" && isWebSocketUpgrade(c) {
			guestID = strings.TrimSpace(c.Query("guestId"))
		}
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Missing identity", nil)
			return
		}
		c.Set(userIDKey, guestPrefix+guestID)
		c.Set(isGuestKey, true)
		c.Next()
	}
}

// bearerToken reports the token, whether one was supplied, and whether the
// supplied header was well formed.
func bearerToken(c *gin.Context) (string, bool, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		if isWebSocketUpgrade(c) {
			if t := strings.TrimSpace(c.Query("token")); t != "" {
				return t, true, true
			}
		}
		return "", false, true
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", true, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", true, false
	}
	return token, true, true
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func setIfNotEmpty(c *gin.Context, key, value string) {
	if value != "" {
		c.Set(key, value)
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// IsGuest reports whether the caller authenticated with a guest ID.
func IsGuest(c *gin.Context) bool {
	if c == nil {
		return false
	}
	return c.GetBool(isGuestKey)
}

func UserEmailFromContext(c *gin.Context) string   { return stringFromContext(c, userEmailKey) }
func UserNameFromContext(c *gin.Context) string    { return stringFromContext(c, userNameKey) }
func UserPictureFromContext(c *gin.Context) string { return stringFromContext(c, userPictureKey) }

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
