package api

import (
	"net/http"
	"strings"

	"github.com/ZJUSCT/OITrack/internal/auth"
	"github.com/ZJUSCT/OITrack/internal/config"
	"github.com/ZJUSCT/OITrack/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// CORSMiddleware provides a configurable CORS middleware.
func CORSMiddleware(cfg config.CORS) gin.HandlerFunc {
	return func(c *gin.Context) {
		// If no origins are configured, do nothing.
		if len(cfg.AllowedOrigins) == 0 {
			c.Next()
			return
		}

		origin := c.Request.Header.Get("Origin")
		allowOrigin := ""

		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				allowOrigin = "*"
				break
			}
			if o == origin {
				allowOrigin = origin
				break
			}
		}

		// Only set headers if the origin is allowed.
		if allowOrigin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

			if c.Request.Method == "OPTIONS" {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
		}
		c.Next()
	}
}

// TokenBody is embedded in request bodies that carry the session token.
type TokenBody struct {
	Token string `json:"token"`
}

// AuthMiddleware accepts the session token either as a Bearer header or as
// the "token" field of a JSON body.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				util.Error(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else if c.Request.ContentLength != 0 && c.Request.Body != nil {
			var body TokenBody
			// Cached so handlers can bind the same body again.
			if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
				tokenString = body.Token
			}
		}

		if tokenString == "" {
			util.Error(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		claims, err := auth.ValidateJWT(tokenString, secret)
		if err != nil {
			util.Error(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		c.Set("userID", claims.Subject)
		c.Next()
	}
}
