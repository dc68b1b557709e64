package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/models"
)

func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.User{})
		if search := c.Query("search"); search != "" {
			like := "%" + search + "%"
			q = q.Where("username LIKE ? OR email LIKE ?", like, like)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if limit <= 0 || limit > 100 {
			limit = 100
		}

		var users []models.User
		err := q.Preload("Roles").Preload("Student").
			Order("username").Offset(skip).Limit(limit).
			Find(&users).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users, "total": total})
	}
}

func GetUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		err := db.Preload("Roles.Permissions").Preload("Student.Bed.Room").
			First(&user, "id = ?", c.Param("id")).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

type updateUserInput struct {
	IsActive  *bool    `json:"is_active"`
	RoleNames []string `json:"role_names"`
}

// UpdateUser toggles activation and replaces role membership. The last
// admin cannot deactivate themselves.
func UpdateUser(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var user models.User
		if err := db.Preload("Roles").First(&user, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}

		var in updateUserInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		caller := auth.UserFrom(c)
		if in.IsActive != nil && !*in.IsActive && caller.ID == user.ID {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot deactivate your own account"})
			return
		}

		var roles []models.Role
		if in.RoleNames != nil {
			if err := db.Where("name IN ?", in.RoleNames).Find(&roles).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
				return
			}
			if len(roles) != len(in.RoleNames) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "One or more role names are unknown"})
				return
			}
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if in.IsActive != nil {
				if err := tx.Model(&user).Update("is_active", *in.IsActive).Error; err != nil {
					return err
				}
			}
			if in.RoleNames != nil {
				return tx.Model(&user).Association("Roles").Replace(roles)
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, caller, audit.Event{
			Action:       "UPDATE",
			ResourceType: "User",
			ResourceID:   user.ID,
			Metadata:     map[string]any{"is_active": in.IsActive, "role_names": in.RoleNames},
		})

		if err := db.Preload("Roles").First(&user, "id = ?", user.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func DeleteUser(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		caller := auth.UserFrom(c)
		if caller.ID == id {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot delete your own account"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var user models.User
			if err := tx.First(&user, "id = ?", id).Error; err != nil {
				return err
			}
			if err := tx.Model(&user).Association("Roles").Clear(); err != nil {
				return err
			}
			// Unlink rather than orphan the student record.
			if err := tx.Model(&models.Student{}).Where("user_id = ?", id).
				Update("user_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&user).Error
		})
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "User not found"})
			return
		}

		rec.Record(c, caller, audit.Event{
			Action:       "DELETE",
			ResourceType: "User",
			ResourceID:   id,
		})
		c.Status(http.StatusNoContent)
	}
}
