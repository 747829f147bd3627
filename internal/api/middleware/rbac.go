package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/refstore/internal/api/response"
	"github.com/nebari-dev/refstore/internal/auth"
	"github.com/nebari-dev/refstore/internal/rbac"
)

// Require ensures the credential's role may perform act on obj.
func Require(en *rbac.Enforcer, obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, err := auth.GetCredential(c)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing credential")
			return
		}

		ok, err := en.Can(cred.Role, obj, act)
		if err != nil {
			slog.Error("RBAC check failed", "error", err, "role", cred.Role, "object", obj, "action", act)
			response.Error(c, http.StatusInternalServerError, response.CodeInternal, "internal server error")
			return
		}
		if !ok {
			response.Error(c, http.StatusForbidden, response.CodeForbidden, "role "+cred.Role+" cannot "+act+" "+obj)
			return
		}

		c.Next()
	}
}
