package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash to configure as the viewer password
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("password hashing failed: %w", err)
	}
	return string(hash), nil
}

// ViewerAuth admits requests that carry the viewer password, either as HTTP
// basic auth with any user name or as the "token" query parameter. Browsers
// cannot set headers on WebSocket upgrades, hence the query form.
func ViewerAuth(passwordHash string) (gin.HandlerFunc, error) {
	hash := []byte(passwordHash)
	if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid password hash: %w", err)
	}

	return func(c *gin.Context) {
		password, ok := c.GetQuery("token")
		if !ok {
			_, password, ok = c.Request.BasicAuth()
		}
		if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
			c.Header("WWW-Authenticate", `Basic realm="rdesk"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.Next()
	}, nil
}
