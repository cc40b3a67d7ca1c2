package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quotedeck/quote-service/internal/adapters/http/dto"
	"github.com/quotedeck/quote-service/internal/platform/config"
)

const (
	// ContextKeyClaims is the gin context key claims are cached under.
	ContextKeyClaims = "claims"

	// Header names used when AuthConfig does not override them.
	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
	defaultScopesHeader  = "X-User-Scopes"
)

// Claims is the caller identity as asserted by the gateway. The
// gateway terminates the JWT; this service only reads the identity
// headers it forwards.
type Claims struct {
	// Subject is the caller's user ID.
	Subject string

	// Roles the caller holds.
	Roles []string

	// Scopes granted to the caller's token.
	Scopes []string

	// Permissions are fine-grained grants beyond roles and scopes.
	Permissions []string
}

// HasRole reports whether the caller holds role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// HasAnyRole reports whether the caller holds at least one of roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, c.HasRole)
}

// HasScope reports whether the caller's token carries scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// HasAllScopes reports whether the token carries every listed scope.
func (c *Claims) HasAllScopes(scopes ...string) bool {
	for _, scope := range scopes {
		if !c.HasScope(scope) {
			return false
		}
	}

	return true
}

// HasAnyScope reports whether the token carries at least one listed scope.
func (c *Claims) HasAnyScope(scopes ...string) bool {
	return slices.ContainsFunc(scopes, c.HasScope)
}

// HasPermission reports whether the caller holds perm.
func (c *Claims) HasPermission(perm string) bool {
	return slices.Contains(c.Permissions, perm)
}

// headerNames resolves the identity header names, falling back to the
// package defaults for anything cfg leaves blank.
func headerNames(cfg *config.AuthConfig) (subject, roles, scopes string) {
	subject = defaultSubjectHeader
	roles = defaultRolesHeader
	scopes = defaultScopesHeader

	if cfg == nil {
		return subject, roles, scopes
	}

	if cfg.SubjectHeader != "" {
		subject = cfg.SubjectHeader
	}
	if cfg.RolesHeader != "" {
		roles = cfg.RolesHeader
	}
	if cfg.ScopesHeader != "" {
		scopes = cfg.ScopesHeader
	}

	return subject, roles, scopes
}

// ExtractClaims reads the caller identity out of the request headers.
// Roles arrive comma-separated; scopes space-separated, as OAuth2
// writes them.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader, rolesHeader, scopesHeader := headerNames(cfg)

	claims := &Claims{
		Subject: c.GetHeader(subjectHeader),
	}

	if raw := c.GetHeader(rolesHeader); raw != "" {
		claims.Roles = splitCommaList(raw)
	}

	if raw := c.GetHeader(scopesHeader); raw != "" {
		claims.Scopes = splitScopeList(raw)
	}

	return claims
}

// GetClaims returns the claims cached on the gin context, or nil when
// no auth middleware ran.
func GetClaims(c *gin.Context) *Claims {
	if v, exists := c.Get(ContextKeyClaims); exists {
		if claims, ok := v.(*Claims); ok {
			return claims
		}
	}

	return nil
}

// RequireAuth rejects anonymous requests with 401 and caches the
// extracted claims for the guards behind it. Missing grants are the
// guards' business and answer 403.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ExtractClaims(c, cfg)

		if claims.Subject == "" {
			rejectUnauthorized(c, "authentication required")
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// requireClaims builds a guard that answers 403 with message unless
// allowed holds for the caller's claims.
func requireClaims(cfg *config.AuthConfig, allowed func(*Claims) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := cachedClaims(c, cfg)

		if !allowed(claims) {
			rejectForbidden(c, message)
			return
		}

		c.Next()
	}
}

// RequireRole guards a route behind one role.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return requireClaims(cfg,
		func(cl *Claims) bool { return cl.HasRole(role) },
		"insufficient permissions: role "+role+" required",
	)
}

// RequireAnyRole guards a route behind at least one of roles.
func RequireAnyRole(cfg *config.AuthConfig, roles ...string) gin.HandlerFunc {
	return requireClaims(cfg,
		func(cl *Claims) bool { return cl.HasAnyRole(roles...) },
		"insufficient permissions: one of roles ["+strings.Join(roles, ", ")+"] required",
	)
}

// RequireScopes guards a route behind every listed scope.
func RequireScopes(cfg *config.AuthConfig, scopes ...string) gin.HandlerFunc {
	return requireClaims(cfg,
		func(cl *Claims) bool { return cl.HasAllScopes(scopes...) },
		"insufficient permissions: scopes ["+strings.Join(scopes, ", ")+"] required",
	)
}

// RequireAnyScope guards a route behind at least one of scopes.
func RequireAnyScope(cfg *config.AuthConfig, scopes ...string) gin.HandlerFunc {
	return requireClaims(cfg,
		func(cl *Claims) bool { return cl.HasAnyScope(scopes...) },
		"insufficient permissions: one of scopes ["+strings.Join(scopes, ", ")+"] required",
	)
}

// RequirePermission guards a route behind one fine-grained permission.
func RequirePermission(cfg *config.AuthConfig, perm string) gin.HandlerFunc {
	return requireClaims(cfg,
		func(cl *Claims) bool { return cl.HasPermission(perm) },
		"insufficient permissions: permission "+perm+" required",
	)
}

// RequireAny passes when any one of the checks holds, giving routes OR
// rules like "admin role or quotes:admin scope":
//
//	admin.Use(RequireAny(cfg,
//	    func(cl *Claims) bool { return cl.HasRole("admin") },
//	    func(cl *Claims) bool { return cl.HasScope("quotes:admin") },
//	))
func RequireAny(cfg *config.AuthConfig, checks ...func(*Claims) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := cachedClaims(c, cfg)

		for _, check := range checks {
			if check(claims) {
				c.Next()
				return
			}
		}

		rejectForbidden(c, "insufficient permissions")
	}
}

// cachedClaims reuses claims cached by RequireAuth or extracts
// and caches them so guards also work standalone.
func cachedClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	if claims := GetClaims(c); claims != nil {
		return claims
	}

	claims := ExtractClaims(c, cfg)
	c.Set(ContextKeyClaims, claims)

	return claims
}

func rejectForbidden(c *gin.Context, message string) {
	writeAuthFailure(c, http.StatusForbidden, dto.ErrorCodeForbidden, message)
}

func rejectUnauthorized(c *gin.Context, message string) {
	writeAuthFailure(c, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, message)
}

// writeAuthFailure writes the error envelope, stamping the active
// trace ID when a span is recording.
func writeAuthFailure(c *gin.Context, status int, code, message string) {
	resp := dto.NewErrorResponse(code, message)

	if traceID := activeTraceID(c); traceID != "" {
		resp.TraceID = traceID
	}

	c.AbortWithStatusJSON(status, resp)
}

// splitCommaList splits on commas, trimming whitespace and
// dropping empty entries.
func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")

	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}

// splitScopeList splits on whitespace, the OAuth2 scope list
// format.
func splitScopeList(s string) []string {
	return strings.Fields(s)
}
