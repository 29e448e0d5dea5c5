package http

import (
	"net/http"
	"strings"

	"docsign/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	principalContextKey = "principal"

	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// requireAuth resolves the caller from the access cookie or a bearer token
// and checks the role grants the permission.
func (s *Server) requireAuth(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authenticator == nil {
			writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
			return
		}
		token := accessToken(c)
		if token == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized request")
			return
		}
		principal, err := s.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid access token")
			return
		}
		if err := s.authorizer.Require(principal, permission); err != nil {
			s.writeError(c, err)
			return
		}
		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(accessTokenCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	return extractBearerToken(c.GetHeader("Authorization"))
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

func getPrincipal(c *gin.Context) domain.Principal {
	raw, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}
	}
	principal, _ := raw.(domain.Principal)
	return principal
}

func (s *Server) setAuthCookies(c *gin.Context, pair domain.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, pair.AccessToken, int(s.accessTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
	c.SetCookie(refreshTokenCookie, pair.RefreshToken, int(s.refreshTTL.Seconds()), "/", "", s.cfg.CookieSecure, true)
}

func (s *Server) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", s.cfg.CookieSecure, true)
	c.SetCookie(refreshTokenCookie, "", -1, "/", "", s.cfg.CookieSecure, true)
}
