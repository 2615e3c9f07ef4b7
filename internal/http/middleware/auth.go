package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rozysk-service/internal/auth"
	"rozysk-service/internal/model"
)

const (
	principalContextKey = "principal"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
)

// Auth пускает только пользователей с ролью ADMIN или OPERATOR.
func Auth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			return
		}

		claims, err := parser.Parse(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		role, ok := model.ParseUserRole(claims.Role)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role has no access to rozysk"})
			return
		}

		c.Set(principalContextKey, model.Principal{UserID: claims.UserID, Role: role})
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerPrefix) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	principal, ok := c.Value(principalContextKey).(model.Principal)
	return principal, ok
}
