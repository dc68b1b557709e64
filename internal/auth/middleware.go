package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/models"
	"dormtrack/internal/perm"
)

const (
	// CookieName is the HttpOnly session cookie set at login.
	CookieName = "access_token"
	// RefreshHeader carries a silently minted replacement token when the
	// presented one is close to expiry.
	RefreshHeader = "X-Refreshed-Token"

	ctxUser   = "auth.user"
	ctxPerms  = "auth.perms"
	ctxClaims = "auth.claims"
)

// Identity resolves the bearer credential to a user and materializes the
// flattened permission set once per request. Ordering: extract token, parse,
// blocklist lookup, user load, active check, permission flattening, sliding
// refresh.
func Identity(db *gorm.DB, mgr *Manager, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}

		claims, err := mgr.Parse(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}

		blocked, err := IsBlocklisted(db, claims.ID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if blocked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}

		var user models.User
		if err := db.Preload("Roles.Permissions").Preload("Student.Bed.Room").
			First(&user, "id = ?", claims.Subject).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Inactive user"})
			return
		}

		c.Set(ctxUser, &user)
		c.Set(ctxPerms, Materialize(&user))
		c.Set(ctxClaims, claims)

		// Sliding refresh: best effort, never fails the request.
		if mgr.NeedsRefresh(claims) {
			if fresh, _, err := mgr.Issue(user.ID); err == nil {
				c.Header(RefreshHeader, fresh)
				setSessionCookie(c, fresh, mgr.TTL())
			} else {
				log.Warn("token refresh failed", "user", user.Username, "err", err)
			}
		}

		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie
	}
	return ""
}

// Materialize flattens user.Roles[*].Permissions[*].Name into one
// deduplicated set. Guards consume this set; none re-walk the role graph.
func Materialize(u *models.User) perm.Set {
	s := perm.Set{}
	for _, role := range u.Roles {
		for _, p := range role.Permissions {
			s[p.Name] = struct{}{}
		}
	}
	return s
}

// IsBlocklisted reports whether a token id was revoked and is still inside
// its natural lifetime.
func IsBlocklisted(db *gorm.DB, jti string) (bool, error) {
	var count int64
	err := db.Model(&models.TokenBlocklist{}).
		Where("jti = ? AND token_type = ? AND expires_at > ?", jti, models.TokenAccess, time.Now()).
		Count(&count).Error
	return count > 0, err
}

// Revoke inserts a blocklist entry for the token id, keyed until its
// natural expiry.
func Revoke(db *gorm.DB, claims *Claims) error {
	entry := models.TokenBlocklist{
		JTI:       claims.ID,
		UserID:    &claims.Subject,
		TokenType: models.TokenAccess,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	return db.Create(&entry).Error
}

func setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(ttl.Seconds()), "/", "", false, true)
}

// SetSessionCookie is the login-side counterpart of the middleware refresh.
func SetSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	setSessionCookie(c, token, ttl)
}

// ClearSessionCookie removes the session cookie regardless of token state.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", false, true)
}

// UserFrom returns the resolved user stored by Identity.
func UserFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUser); ok {
		return v.(*models.User)
	}
	return nil
}

// PermissionsFrom returns the materialized permission set for this request.
func PermissionsFrom(c *gin.Context) perm.Set {
	if v, ok := c.Get(ctxPerms); ok {
		return v.(perm.Set)
	}
	return perm.Set{}
}

// ClaimsFrom returns the parsed token claims for this request.
func ClaimsFrom(c *gin.Context) *Claims {
	if v, ok := c.Get(ctxClaims); ok {
		return v.(*Claims)
	}
	return nil
}
