package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UsernameKey is the gin context key holding the verified username claim.
const UsernameKey = "username"

// TokenVerifier verifies a session token and returns the username claim.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth rejects requests that do not carry a verifiable session
// token. The verified username is stored in the gin context.
func RequireAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := authenticate(c, tokens)
		if !ok {
			return
		}
		c.Set(UsernameKey, username)
		c.Next()
	}
}

// RequireSameUser additionally rejects callers whose verified username does
// not match the :username path parameter.
func RequireSameUser(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, ok := authenticate(c, tokens)
		if !ok {
			return
		}
		if username != c.Param("username") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "wrong user", "status": http.StatusForbidden}})
			return
		}
		c.Set(UsernameKey, username)
		c.Next()
	}
}

// authenticate extracts and verifies the session token, aborting the
// request on failure.
func authenticate(c *gin.Context, tokens TokenVerifier) (string, bool) {
	token := extractToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "missing token", "status": http.StatusUnauthorized}})
		return "", false
	}

	username, err := tokens.Verify(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "invalid token", "status": http.StatusUnauthorized}})
		return "", false
	}
	return username, true
}

// extractToken reads the session token from the `_token` field of a JSON
// request body, falling back to an Authorization bearer header. The body is
// re-buffered so handlers can still bind it.
func extractToken(c *gin.Context) string {
	if token := tokenFromBody(c); token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func tokenFromBody(c *gin.Context) string {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return ""
	}

	raw, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	var body struct {
		Token string `json:"_token"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Token
}
