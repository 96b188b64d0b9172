package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/sga/sga/internal/platform/apperr"
)

// RequireCapability returns middleware that checks the caller's role grants c.
func RequireCapability(c Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			id := Caller(ec)
			if !id.Authenticated() {
				return apperr.ToHTTP(apperr.Unauthenticated("authentication required"))
			}
			if !id.Can(c) {
				return apperr.ToHTTP(apperr.Forbidden(
					"role %q lacks permission %q", id.Role, c))
			}
			return next(ec)
		}
	}
}

// CheckRole returns a permission error naming the caller's role unless it is
// one of roles.
func CheckRole(id Identity, roles ...Role) error {
	if !id.Authenticated() {
		return apperr.Unauthenticated("authentication required")
	}
	if !id.HasRole(roles...) {
		return apperr.Forbidden("permission denied: operation requires role %s, current role is %q",
			joinRoles(roles), id.Role)
	}
	return nil
}

func joinRoles(roles []Role) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += string(r)
	}
	return out
}
