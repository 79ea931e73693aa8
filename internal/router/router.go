package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/attendance-backend/internal/config"
	"github.com/stemsi/attendance-backend/internal/handler"
	"github.com/stemsi/attendance-backend/internal/middleware"
	"github.com/stemsi/attendance-backend/internal/model"
	"github.com/stemsi/attendance-backend/internal/response"
)

// holidayMaxAge lets browsers reuse the holiday list for a few minutes.
const holidayMaxAge = 300

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	User       *handler.UserHandler
	Class      *handler.ClassHandler
	Archive    *handler.ArchiveHandler
	Attendance *handler.AttendanceHandler
	Holiday    *handler.HolidayHandler
	Report     *handler.ReportHandler
	Dashboard  *handler.DashboardHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// loginLimiter may be nil to disable rate limiting on the login route.
func SetupRouter(
	auth middleware.TokenValidator,
	handlers *Handlers,
	loginLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))

	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())

	// ─── 1. Auth (public login, rate limited) ──────────────────────────
	authAPI := api.Group("/auth")
	{
		if loginLimiter != nil {
			authAPI.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		} else {
			authAPI.POST("/login", handlers.Auth.Login)
		}
		authAPI.GET("/me", middleware.RequireJWT(auth), handlers.Auth.Me)
	}

	// ─── 2. Authenticated API (JWT + RBAC) ─────────────────────────────
	secured := api.Group("")
	secured.Use(middleware.RequireJWT(auth))

	// Users
	secured.GET("/users",
		middleware.RequirePermission(model.PermissionUsersRead),
		handlers.User.ListUsers,
	)
	secured.GET("/users/:id",
		middleware.RequirePermission(model.PermissionUsersRead),
		handlers.User.GetUser,
	)
	secured.POST("/users",
		middleware.RequirePermission(model.PermissionUsersWrite),
		handlers.User.CreateUser,
	)
	secured.PUT("/users/:id",
		middleware.RequirePermission(model.PermissionUsersWrite),
		handlers.User.UpdateUser,
	)
	secured.DELETE("/users/:id",
		middleware.RequirePermission(model.PermissionUsersWrite),
		handlers.User.DeleteUser,
	)

	// Classes
	secured.GET("/classes",
		middleware.RequirePermission(model.PermissionClassesRead),
		handlers.Class.ListClasses,
	)
	secured.GET("/classes/:id",
		middleware.RequirePermission(model.PermissionClassesRead),
		handlers.Class.GetClass,
	)
	secured.POST("/classes",
		middleware.RequirePermission(model.PermissionClassesWrite),
		handlers.Class.CreateClass,
	)
	secured.PUT("/classes/:id",
		middleware.RequirePermission(model.PermissionClassesWrite),
		handlers.Class.UpdateClass,
	)
	secured.DELETE("/classes/:id",
		middleware.RequirePermission(model.PermissionClassesWrite),
		handlers.Class.DeleteClass,
	)

	// Roster
	secured.POST("/classes/:id/students",
		middleware.RequirePermission(model.PermissionStudentsWrite),
		handlers.Class.AddStudent,
	)
	secured.PUT("/classes/:id/students/:student_id",
		middleware.RequirePermission(model.PermissionStudentsWrite),
		handlers.Class.UpdateStudent,
	)
	secured.POST("/classes/:id/students/:student_id/transfer",
		middleware.RequirePermission(model.PermissionStudentsWrite),
		handlers.Class.TransferStudent,
	)
	secured.POST("/classes/:id/students/:student_id/archive",
		middleware.RequirePermission(model.PermissionStudentsWrite),
		handlers.Class.ArchiveStudent,
	)

	// Archived students
	secured.GET("/archived-students",
		middleware.RequirePermission(model.PermissionStudentsWrite),
		handlers.Archive.ListArchived,
	)
	secured.POST("/archived-students/:id/restore",
		middleware.RequirePermission(model.PermissionStudentsWrite),
		handlers.Archive.RestoreArchived,
	)
	secured.DELETE("/archived-students/:id",
		middleware.RequirePermission(model.PermissionStudentsWrite),
		handlers.Archive.DeleteArchived,
	)

	// Attendance
	secured.GET("/attendance",
		middleware.RequirePermission(model.PermissionAttendanceRead),
		handlers.Attendance.ListAttendance,
	)
	secured.GET("/classes/:id/attendance/:date",
		middleware.RequirePermission(model.PermissionAttendanceRead),
		handlers.Attendance.GetAttendance,
	)
	secured.PUT("/classes/:id/attendance/:date",
		middleware.RequirePermission(model.PermissionAttendanceWrite),
		handlers.Attendance.SubmitAttendance,
	)
	secured.GET("/classes/:id/attendance/:date/history",
		middleware.RequirePermission(model.PermissionAttendanceRead),
		handlers.Attendance.GetHistory,
	)
	secured.DELETE("/classes/:id/attendance/:date",
		middleware.RequirePermission(model.PermissionAttendanceManageAll),
		handlers.Attendance.DeleteAttendance,
	)

	// Holidays
	secured.GET("/holidays",
		middleware.RequireAnyPermission(model.PermissionAttendanceRead, model.PermissionReportsRead),
		middleware.CacheControl(holidayMaxAge),
		handlers.Holiday.ListHolidays,
	)
	secured.POST("/holidays",
		middleware.RequirePermission(model.PermissionHolidaysWrite),
		handlers.Holiday.CreateHoliday,
	)
	secured.PUT("/holidays/:id",
		middleware.RequirePermission(model.PermissionHolidaysWrite),
		handlers.Holiday.UpdateHoliday,
	)
	secured.DELETE("/holidays/:id",
		middleware.RequirePermission(model.PermissionHolidaysWrite),
		handlers.Holiday.DeleteHoliday,
	)

	// Reports, calendar and dashboard
	reports := secured.Group("")
	reports.Use(middleware.RequirePermission(model.PermissionReportsRead))
	{
		reports.GET("/reports/students", handlers.Report.StudentReport)
		reports.GET("/reports/classes", handlers.Report.ClassReport)
		reports.GET("/reports/daily", handlers.Report.DailyTrend)
		reports.GET("/reports/selection", handlers.Report.GetSelection)
		reports.POST("/reports/selection/click", handlers.Report.ClickSelection)
		reports.DELETE("/reports/selection", handlers.Report.ResetSelection)
		reports.GET("/calendar", handlers.Report.Calendar)
		reports.GET("/dashboard", handlers.Dashboard.GetDashboard)
	}

	// ─── 3. WebSocket (token in query string) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(auth),
		middleware.RequirePermission(model.PermissionReportsRead),
	)
	{
		ws.GET("/dashboard/stream", handlers.Dashboard.Stream)
	}

	return router
}
