package middleware

import (
	"context"
	"net/http"
	"strings"

	"qist/internal/apierror"
	"qist/internal/model"

	"github.com/gin-gonic/gin"
)

const UserKey = "current_user"

// Authenticator resolves a bearer token to the stored user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// JWTAuth validates the Bearer token on every protected route and loads the
// current user, role included, from the database.
func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(http.StatusUnauthorized, "Authentication required"))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			status, body := apierror.FromError(err)
			c.AbortWithStatusJSON(status, body)
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by JWTAuth, or nil on public routes.
func CurrentUser(c *gin.Context) *model.User {
	user, _ := c.Get(UserKey)
	u, _ := user.(*model.User)
	return u
}

func require(allowed func(u *model.User) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil || !allowed(u) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New(http.StatusForbidden, "Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// RequireAdmin admits Super Admin, Admin and users granted the admin permission.
func RequireAdmin() gin.HandlerFunc {
	return require(func(u *model.User) bool { return u.IsAdmin() })
}

func RequireSuperAdmin() gin.HandlerFunc {
	return require(func(u *model.User) bool { return u.IsSuperAdmin() })
}

// RequireRole rejects requests whose current role is not in the allowed list.
// Administrators are always admitted.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return require(func(u *model.User) bool { return u.IsAdmin() || allowed[u.RoleName()] })
}
