package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dormtrack/internal/audit"
	"dormtrack/internal/auth"
	"dormtrack/internal/http/handlers"
	"dormtrack/internal/inspection"
	"dormtrack/internal/notify"
	"dormtrack/internal/perm"
	"dormtrack/internal/ratelimit"
)

// Deps carries the shared services the routes close over.
type Deps struct {
	DB      *gorm.DB
	Tokens  *auth.Manager
	Svc     *inspection.Service
	Audit   *audit.Recorder
	Mailer  *notify.Mailer
	Limiter *ratelimit.Limiter
	Log     *slog.Logger
	BaseURL string
}

// require rejects the request unless the materialized permission set
// satisfies the requirement. The 403 names what was missing.
func require(req perm.Required) gin.HandlerFunc {
	return func(c *gin.Context) {
		set := auth.PermissionsFrom(c)
		if !perm.Evaluate(set, req) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"detail": fmt.Sprintf("Missing required permissions (%s): %s",
					req.Logic, strings.Join(req.Perms, ", ")),
			})
			return
		}
		c.Next()
	}
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes, throttled per client address and route.
	limited := d.Limiter.Middleware()
	r.POST("/api/v1/auth/token", limited, handlers.Login(d.DB, d.Tokens, d.Audit))
	r.POST("/api/v1/auth/register", limited, handlers.Register(d.DB, d.Mailer, d.BaseURL, d.Log))
	r.GET("/api/v1/auth/verify-email/:token", limited, handlers.VerifyEmail(d.DB))
	r.POST("/api/v1/auth/password-recovery", limited, handlers.PasswordRecovery(d.DB, d.Mailer, d.BaseURL))
	r.POST("/api/v1/auth/reset-password", limited, handlers.ResetPassword(d.DB))

	authMW := auth.Identity(d.DB, d.Tokens, d.Log)

	api := r.Group("/api/v1", authMW)
	{
		api.POST("/auth/logout", handlers.Logout(d.DB, d.Tokens, d.Log))
		api.GET("/me", handlers.Me())

		// Users & roles
		api.GET("/users", require(perm.All(perm.UsersView)), handlers.ListUsers(d.DB))
		api.GET("/users/:id", require(perm.All(perm.UsersView)), handlers.GetUser(d.DB))
		api.PUT("/users/:id", require(perm.All(perm.UsersManage)), handlers.UpdateUser(d.DB, d.Audit))
		api.DELETE("/users/:id", require(perm.All(perm.UsersManage)), handlers.DeleteUser(d.DB, d.Audit))

		api.GET("/permissions", require(perm.All(perm.RolesView)), handlers.ListPermissions(d.DB))
		api.GET("/roles", require(perm.All(perm.RolesView)), handlers.ListRoles(d.DB))
		api.POST("/roles", require(perm.All(perm.RolesManage)), handlers.CreateRole(d.DB, d.Audit))
		api.PUT("/roles/:id", require(perm.All(perm.RolesManage)), handlers.UpdateRole(d.DB, d.Audit))
		api.DELETE("/roles/:id", require(perm.All(perm.RolesManage)), handlers.DeleteRole(d.DB, d.Audit))

		// Students
		api.GET("/students", require(perm.Any(perm.StudentsViewAll, perm.StudentsViewOwn)), handlers.ListStudents(d.DB))
		api.GET("/students/:id", require(perm.Any(perm.StudentsViewAll, perm.StudentsViewOwn)), handlers.GetStudentHandler(d.DB))
		api.POST("/students", require(perm.All(perm.StudentsManage)), handlers.CreateStudent(d.DB, d.Audit))
		api.PUT("/students/:id", require(perm.All(perm.StudentsManage)), handlers.UpdateStudent(d.DB, d.Audit))
		api.DELETE("/students/:id", require(perm.All(perm.StudentsManage)), handlers.DeleteStudent(d.DB, d.Audit))
		api.PUT("/students/:id/bed", require(perm.All(perm.StudentsManage)), handlers.AssignStudentBed(d.DB, d.Audit))

		// Buildings, rooms, beds
		api.GET("/buildings", require(perm.All(perm.RoomsView)), handlers.ListBuildings(d.DB))
		api.POST("/buildings", require(perm.All(perm.RoomsManage)), handlers.CreateBuilding(d.DB, d.Audit))
		api.DELETE("/buildings/:id", require(perm.All(perm.RoomsManage)), handlers.DeleteBuilding(d.DB, d.Audit))
		api.GET("/rooms", require(perm.All(perm.RoomsView)), handlers.ListRooms(d.DB))
		api.POST("/rooms", require(perm.All(perm.RoomsManage)), handlers.CreateRoom(d.DB, d.Audit))
		api.DELETE("/rooms/:id", require(perm.All(perm.RoomsManage)), handlers.DeleteRoom(d.DB, d.Audit))
		api.GET("/beds", require(perm.All(perm.RoomsView)), handlers.ListBeds(d.DB))
		api.POST("/beds", require(perm.All(perm.RoomsManage)), handlers.CreateBed(d.DB, d.Audit))
		api.DELETE("/beds/:id", require(perm.All(perm.RoomsManage)), handlers.DeleteBed(d.DB, d.Audit))

		// Inspections
		api.POST("/inspections", require(perm.Any(perm.InspectionsSubmitAny, perm.InspectionsSubmitOwn)), handlers.CreateInspection(d.Svc, d.Audit))
		api.POST("/inspections/batch", require(perm.All(perm.InspectionsSubmitAny)), handlers.CreateInspectionBatch(d.Svc, d.Audit))
		api.GET("/inspections", require(perm.Any(perm.InspectionsViewAll, perm.InspectionsViewOwn)), handlers.ListInspections(d.Svc))
		api.GET("/inspections/:id", require(perm.Any(perm.InspectionsViewAll, perm.InspectionsViewOwn)), handlers.GetInspection(d.Svc))
		api.PUT("/inspections/:id/status", require(perm.All(perm.InspectionsReview)), handlers.UpdateInspectionStatus(d.Svc, d.Audit))
		api.DELETE("/inspections/:id", require(perm.All(perm.InspectionsDelete)), handlers.DeleteInspection(d.Svc, d.Audit))
		api.GET("/inspections/:id/pdf", require(perm.Any(perm.InspectionsViewAll, perm.InspectionsViewOwn)), handlers.InspectionPDF(d.Svc))
		api.POST("/inspections/:id/email", require(perm.Any(perm.InspectionsViewAll, perm.InspectionsViewOwn)), handlers.EmailInspection(d.Svc, d.Mailer, d.Audit, d.Log))

		// Inspection items
		api.GET("/items", handlers.ListItems(d.DB))
		api.POST("/items", require(perm.All(perm.ItemsManage)), handlers.CreateItem(d.DB, d.Audit))
		api.PUT("/items/:id", require(perm.All(perm.ItemsManage)), handlers.UpdateItem(d.DB, d.Audit))
		api.DELETE("/items/:id", require(perm.All(perm.ItemsManage)), handlers.DeleteItem(d.DB, d.Audit))

		// Announcements
		api.GET("/announcements", require(perm.All(perm.AnnouncementsView)), handlers.ListAnnouncements(d.DB))
		api.POST("/announcements", require(perm.All(perm.AnnouncementsCreate)), handlers.CreateAnnouncement(d.DB, d.Audit))
		api.PUT("/announcements/:id", require(perm.All(perm.AnnouncementsEdit)), handlers.UpdateAnnouncement(d.DB, d.Audit))
		api.DELETE("/announcements/:id", require(perm.All(perm.AnnouncementsDelete)), handlers.DeleteAnnouncement(d.DB, d.Audit))

		// Lights-out patrols
		api.GET("/patrol-locations", require(perm.All(perm.PatrolLocationsView)), handlers.ListPatrolLocations(d.DB))
		api.POST("/patrol-locations", require(perm.All(perm.PatrolLocationsManage)), handlers.CreatePatrolLocation(d.DB, d.Audit))
		api.DELETE("/patrol-locations/:id", require(perm.All(perm.PatrolLocationsManage)), handlers.DeletePatrolLocation(d.DB, d.Audit))
		api.POST("/patrols", require(perm.All(perm.PatrolsPerform)), handlers.CreatePatrol(d.DB, d.Audit))
		api.GET("/patrols", require(perm.All(perm.PatrolsViewAll)), handlers.ListPatrols(d.DB))

		// Audit, search, dashboard
		api.GET("/audit-logs", require(perm.All(perm.AuditLogsView)), handlers.ListAuditLogs(d.DB))
		api.GET("/search", require(perm.All(perm.StudentsViewAll)), handlers.GlobalSearch(d.DB))
		api.GET("/dashboard/stats", require(perm.All(perm.ReportsViewStatistics)), handlers.DashboardStats(d.DB))
	}

	return r
}
