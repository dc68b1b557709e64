package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/models"
	"dormtrack/internal/notify"
)

// Login authenticates form-encoded credentials, sets the HttpOnly session
// cookie and returns the bearer token.
func Login(db *gorm.DB, mgr *auth.Manager, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.PostForm("username"))
		password := c.PostForm("password")
		if username == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password are required"})
			return
		}

		var user models.User
		if err := db.Where("username = ?", username).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Inactive user"})
			return
		}

		token, _, err := mgr.Issue(user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create token"})
			return
		}

		auth.SetSessionCookie(c, token, mgr.TTL())
		rec.Record(c, &user, audit.Event{
			Action:       "LOGIN",
			ResourceType: "User",
			ResourceID:   user.ID,
			Metadata:     map[string]any{"username": user.Username},
		})
		c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
	}
}

// Logout revokes the presented credential's jti. The cookie is cleared first
// so logout succeeds client-side even when revocation bookkeeping fails.
func Logout(db *gorm.DB, mgr *auth.Manager, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth.ClearSessionCookie(c)

		tokenStr := c.GetHeader("Authorization")
		if tokenStr != "" {
			tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))
		} else if cookie, err := c.Cookie(auth.CookieName); err == nil {
			tokenStr = cookie
		}
		if tokenStr == "" {
			c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out (no token found)"})
			return
		}

		claims, err := mgr.Parse(tokenStr)
		if err == nil {
			if err := auth.Revoke(db, claims); err != nil {
				log.Error("logout revocation failed", "jti", claims.ID, "err", err)
			}
		}
		c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
	}
}

type registerInput struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register creates an account. The first user becomes an active admin;
// everyone else starts inactive as a student pending email verification.
func Register(db *gorm.DB, mailer *notify.Mailer, baseURL string, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in registerInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		in.Username = strings.TrimSpace(in.Username)
		in.Email = strings.ToLower(strings.TrimSpace(in.Email))

		var count int64
		if err := db.Model(&models.User{}).
			Where("username = ? OR email = ?", in.Username, in.Email).
			Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Username or email already registered"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		var total int64
		if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		roleName := models.RoleStudent
		active := false
		if total == 0 {
			roleName = models.RoleAdmin
			active = true
		}

		user := models.User{
			Username:       in.Username,
			Email:          in.Email,
			HashedPassword: string(hash),
			IsActive:       active,
		}
		var verification string
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			var role models.Role
			if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
				return err
			}
			if err := tx.Model(&user).Association("Roles").Append(&role); err != nil {
				return err
			}
			if !active {
				verification = uuid.NewString()
				entry := models.TokenBlocklist{
					JTI:       verification,
					UserID:    &user.ID,
					TokenType: models.TokenVerification,
					ExpiresAt: time.Now().Add(24 * time.Hour),
				}
				return tx.Create(&entry).Error
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		if verification != "" {
			link := fmt.Sprintf("%s/verify-email?token=%s", baseURL, verification)
			go mailer.SendVerification(user.Email, user.Username, link)
			if log.Enabled(c, slog.LevelDebug) {
				log.Debug("verification link", "link", link)
			}
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"email":     user.Email,
			"is_active": user.IsActive,
		})
	}
}

// VerifyEmail activates the account referenced by a verification token.
func VerifyEmail(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		err := db.Transaction(func(tx *gorm.DB) error {
			var entry models.TokenBlocklist
			if err := tx.Where("jti = ? AND token_type = ? AND expires_at > ?",
				token, models.TokenVerification, time.Now()).First(&entry).Error; err != nil {
				return err
			}
			if entry.UserID == nil {
				return gorm.ErrRecordNotFound
			}
			if err := tx.Model(&models.User{}).Where("id = ?", *entry.UserID).
				Update("is_active", true).Error; err != nil {
				return err
			}
			return tx.Delete(&entry).Error
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid or expired verification token."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully. Your account is now active."})
	}
}

type passwordRecoveryInput struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordRecovery issues a reset token. The response never reveals whether
// the address exists.
func PasswordRecovery(db *gorm.DB, mailer *notify.Mailer, baseURL string) gin.HandlerFunc {
	const reply = "If an account with that email exists, a password reset link has been sent."
	return func(c *gin.Context) {
		var in passwordRecoveryInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", strings.ToLower(in.Email)).First(&user).Error; err != nil {
			c.JSON(http.StatusOK, gin.H{"message": reply})
			return
		}

		token := uuid.NewString()
		entry := models.TokenBlocklist{
			JTI:       token,
			UserID:    &user.ID,
			TokenType: models.TokenPasswordReset,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := db.Create(&entry).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		link := fmt.Sprintf("%s/reset-password?token=%s", baseURL, token)
		go mailer.SendPasswordReset(user.Email, user.Username, link)
		c.JSON(http.StatusOK, gin.H{"message": reply})
	}
}

type resetPasswordInput struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

func ResetPassword(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in resetPasswordInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		if in.NewPassword != in.ConfirmPassword {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "New password and confirmation do not match."})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var entry models.TokenBlocklist
			if err := tx.Where("jti = ? AND token_type = ? AND expires_at > ?",
				in.Token, models.TokenPasswordReset, time.Now()).First(&entry).Error; err != nil {
				return err
			}
			if entry.UserID == nil {
				return gorm.ErrRecordNotFound
			}
			if err := tx.Model(&models.User{}).Where("id = ?", *entry.UserID).
				Update("hashed_password", string(hash)).Error; err != nil {
				return err
			}
			return tx.Delete(&entry).Error
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid or expired password reset token."})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password has been reset successfully."})
	}
}

// Me returns the resolved identity and its materialized permission set.
func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.UserFrom(c)
		set := auth.PermissionsFrom(c)
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "permissions": names})
	}
}
