package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/models"
)

func ListPermissions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var perms []models.Permission
		if err := db.Order("name").Find(&perms).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, perms)
	}
}

func ListRoles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var roles []models.Role
		if err := db.Preload("Permissions").Order("name").Find(&roles).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, roles)
	}
}

type roleInput struct {
	Name            string   `json:"name" binding:"required,max=50"`
	PermissionNames []string `json:"permission_names"`
}

// findPermissions resolves names to rows, failing on unknown ones.
func findPermissions(db *gorm.DB, names []string) ([]models.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var perms []models.Permission
	if err := db.Where("name IN ?", names).Find(&perms).Error; err != nil {
		return nil, err
	}
	if len(perms) != len(names) {
		return nil, gorm.ErrRecordNotFound
	}
	return perms, nil
}

func CreateRole(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in roleInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}

		perms, err := findPermissions(db, in.PermissionNames)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "One or more permission names are unknown"})
			return
		}

		role := models.Role{Name: in.Name}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&role).Error; err != nil {
				return err
			}
			if len(perms) > 0 {
				return tx.Model(&role).Association("Permissions").Replace(perms)
			}
			return nil
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Role already exists"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "CREATE",
			ResourceType: "Role",
			ResourceID:   role.ID,
			Metadata:     map[string]any{"name": role.Name},
		})
		c.JSON(http.StatusCreated, role)
	}
}

// UpdateRole replaces a role's permission set. Reserved roles keep their
// name; only their permissions may change.
func UpdateRole(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var role models.Role
		if err := db.First(&role, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Role not found"})
			return
		}

		var in roleInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
			return
		}
		if models.IsReservedRole(role.Name) && in.Name != role.Name {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Reserved roles cannot be renamed"})
			return
		}

		perms, err := findPermissions(db, in.PermissionNames)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "One or more permission names are unknown"})
			return
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&role).Update("name", in.Name).Error; err != nil {
				return err
			}
			return tx.Model(&role).Association("Permissions").Replace(perms)
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "UPDATE",
			ResourceType: "Role",
			ResourceID:   role.ID,
			Metadata:     map[string]any{"permission_names": in.PermissionNames},
		})

		if err := db.Preload("Permissions").First(&role, "id = ?", role.ID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}
		c.JSON(http.StatusOK, role)
	}
}

func DeleteRole(db *gorm.DB, rec *audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var role models.Role
		if err := db.First(&role, "id = ?", c.Param("id")).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Role not found"})
			return
		}
		if models.IsReservedRole(role.Name) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Reserved roles cannot be deleted"})
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&role).Association("Permissions").Clear(); err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM user_roles WHERE role_id = ?", role.ID).Error; err != nil {
				return err
			}
			return tx.Delete(&role).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
			return
		}

		rec.Record(c, auth.UserFrom(c), audit.Event{
			Action:       "DELETE",
			ResourceType: "Role",
			ResourceID:   role.ID,
			Metadata:     map[string]any{"name": role.Name},
		})
		c.Status(http.StatusNoContent)
	}
}
