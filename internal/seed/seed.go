package seed

import (
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dormtrack/internal/models"
	"dormtrack/internal/perm"
)

type permSpec struct {
	name        string
	description string
}

var catalogue = []permSpec{
	{perm.FullAccess, "Grants full administrative access"},
	{perm.UsersView, "View user accounts"},
	{perm.UsersManage, "Create, update, and delete user accounts"},
	{perm.RolesView, "View roles and their permissions"},
	{perm.RolesManage, "Create, update, and delete roles and permissions"},
	{perm.StudentsViewOwn, "View own student information"},
	{perm.StudentsViewAll, "View all student information"},
	{perm.StudentsManage, "Create, update, and delete student information"},
	{perm.RoomsView, "View room information"},
	{perm.RoomsManage, "Create, update, and delete room information"},
	{perm.InspectionsViewOwn, "View own inspection records"},
	{perm.InspectionsViewAll, "View all inspection records"},
	{perm.InspectionsSubmitOwn, "Submit own inspection records"},
	{perm.InspectionsSubmitAny, "Submit inspection records for any student"},
	{perm.InspectionsReview, "Review and approve inspection records"},
	{perm.InspectionsDelete, "Delete inspection records"},
	{perm.AnnouncementsView, "View announcements"},
	{perm.AnnouncementsCreate, "Create announcements"},
	{perm.AnnouncementsEdit, "Edit announcements"},
	{perm.AnnouncementsDelete, "Delete announcements"},
	{perm.PatrolLocationsView, "View patrol locations"},
	{perm.PatrolLocationsManage, "Create, update, and delete patrol locations"},
	{perm.PatrolsPerform, "Perform and submit lights out patrols"},
	{perm.PatrolsViewAll, "View all lights out patrol history"},
	{perm.ReportsViewStatistics, "View dashboard statistics"},
	{perm.ReportsExport, "Export data and reports"},
	{perm.AuditLogsView, "View system audit logs"},
	{perm.ItemsManage, "Manage inspection items"},
}

var rolePerms = map[string][]string{
	models.RoleAdmin: {perm.FullAccess},
	models.RoleInspector: {
		perm.StudentsViewAll,
		perm.RoomsView,
		perm.InspectionsViewAll,
		perm.InspectionsSubmitAny,
		perm.AnnouncementsView,
		perm.PatrolLocationsView,
		perm.PatrolsPerform,
		perm.PatrolsViewAll,
		perm.ReportsViewStatistics,
	},
	models.RoleStudent: {
		perm.StudentsViewOwn,
		perm.InspectionsViewOwn,
		perm.InspectionsSubmitOwn,
		perm.AnnouncementsView,
	},
}

var defaultItems = []models.InspectionItem{
	{Name: "書桌", NameEn: "Desk"},
	{Name: "衣櫃", NameEn: "Wardrobe"},
	{Name: "床架", NameEn: "Bed frame"},
	{Name: "窗戶", NameEn: "Window"},
	{Name: "電燈", NameEn: "Light fixture"},
	{Name: "冷氣", NameEn: "Air conditioner"},
}

// Run seeds permissions, the three reserved roles, the default inspection
// items, and the first admin account. Idempotent: existing rows are reused.
func Run(db *gorm.DB, adminUsername, adminPassword, adminEmail string, log *slog.Logger) error {
	perms := map[string]models.Permission{}
	for _, spec := range catalogue {
		p := models.Permission{Name: spec.name, Description: spec.description}
		if err := db.Where("name = ?", spec.name).FirstOrCreate(&p).Error; err != nil {
			return err
		}
		perms[spec.name] = p
	}

	for roleName, names := range rolePerms {
		role := models.Role{Name: roleName}
		if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
			return err
		}
		assigned := make([]models.Permission, 0, len(names))
		for _, n := range names {
			assigned = append(assigned, perms[n])
		}
		if err := db.Model(&role).Association("Permissions").Replace(assigned); err != nil {
			return err
		}
	}

	for _, item := range defaultItems {
		i := item
		if err := db.Where("name = ?", i.Name).FirstOrCreate(&i).Error; err != nil {
			return err
		}
	}

	if adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := models.User{
			Username:       adminUsername,
			Email:          adminEmail,
			HashedPassword: string(hash),
			IsActive:       true,
		}
		if err := db.Where("username = ?", adminUsername).FirstOrCreate(&admin).Error; err != nil {
			return err
		}
		var adminRole models.Role
		if err := db.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
			return err
		}
		if err := db.Model(&admin).Association("Roles").Append(&adminRole); err != nil {
			return err
		}
		log.Info("seed complete", "admin", adminUsername, "permissions", len(catalogue))
	}
	return nil
}
