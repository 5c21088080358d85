package main

import (
	"github.com/gwon-omega/eduflow-server/internal/auth"
	"github.com/gwon-omega/eduflow-server/internal/cache"
	"github.com/gwon-omega/eduflow-server/internal/feature"
	"github.com/gwon-omega/eduflow-server/internal/handler"
	"github.com/gwon-omega/eduflow-server/internal/middleware"
	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/gwon-omega/eduflow-server/internal/notify"
	"github.com/gwon-omega/eduflow-server/pkg/config"
	"github.com/gwon-omega/eduflow-server/pkg/database"
	"github.com/gwon-omega/eduflow-server/pkg/jwtutil"
	"github.com/gwon-omega/eduflow-server/pkg/logger"
	"github.com/gwon-omega/eduflow-server/prometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting EduFlow server...", cfg.LogConfig()...)

	// Initialize database
	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(
		&model.User{},
		&model.Institute{},
		&model.Student{},
		&model.Teacher{},
		&model.Course{},
		&model.Enrollment{},
		&model.Attendance{},
		&model.LibraryResource{},
		&model.LibraryBorrow{},
		&model.FeeInvoice{},
		&model.FeePayment{},
		&model.Notification{},
		&model.SupportTicket{},
	); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed")

	// Optional Redis-backed tenant lookaside cache
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.Info("Tenant cache enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}
	tenantCache := cache.NewTenantCache(redisClient, cfg.Redis.TTL, log)

	// Identity resolution wiring
	jwtUtil := jwtutil.NewJWTUtil(&cfg.JWT)
	directory := auth.NewGormDirectory(db, tenantCache)
	resolver := auth.NewResolver(jwtUtil, directory)

	// Notification fan-out; no live push transport is attached here, so
	// notifications are persisted only.
	hub := notify.NewHub()
	notifier := notify.NewService(db, hub, nil, log)

	handler.Init(jwtUtil, notifier, tenantCache)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())
	e.Use(middleware.HostTenant(cfg.Tenant.BaseDomain))

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.POST("/auth/register", handler.Register)
	e.POST("/auth/login", handler.Login)
	e.GET("/institutes/search", handler.SearchInstitutes)

	// Everything below runs through identity resolution
	authed := e.Group("", middleware.Authenticate(resolver, cfg.Tenant.AuthCookie, !cfg.IsProduction()))

	authed.GET("/auth/me", handler.GetMe)
	authed.PUT("/auth/profile", handler.UpdateProfile)
	authed.PUT("/auth/password", handler.ChangePassword)

	// Institute creation needs a user but no resolved tenant
	authed.POST("/institutes", handler.CreateInstitute)

	// Tenant-scoped API: a resolved institute and a membership are mandatory
	api := authed.Group("/api", middleware.RequireTenant, middleware.RequireMember)

	adminOnly := middleware.RequireRole(model.RoleSuperAdmin, model.RoleInstituteAdmin)
	staffOnly := middleware.RequireRole(model.RoleSuperAdmin, model.RoleInstituteAdmin, model.RoleTeacher)

	api.GET("/institute", handler.GetInstitute)
	api.GET("/institute/settings", handler.GetSettings, adminOnly)
	api.PUT("/institute/settings", handler.UpdateSettings, adminOnly)
	api.GET("/institute/dashboard", handler.Dashboard, adminOnly, middleware.RequireFeature(db, feature.Dashboard))

	students := api.Group("/students", middleware.RequireFeature(db, feature.Students))
	students.POST("", handler.CreateStudent, adminOnly)
	students.GET("", handler.ListStudents, staffOnly)
	students.GET("/:id", handler.GetStudent, staffOnly)
	students.PUT("/:id", handler.UpdateStudent, adminOnly)
	students.DELETE("/:id", handler.DeleteStudent, adminOnly)
	students.GET("/:id/courses", handler.GetStudentCourses, staffOnly)
	students.GET("/:id/attendance", handler.GetAttendanceSummary, staffOnly)
	students.GET("/:id/borrows", handler.GetBorrowHistory, staffOnly)

	teachers := api.Group("/teachers", middleware.RequireFeature(db, feature.Teachers))
	teachers.POST("", handler.CreateTeacher, adminOnly)
	teachers.GET("", handler.ListTeachers, staffOnly)
	teachers.GET("/:id", handler.GetTeacher, staffOnly)
	teachers.PUT("/:id", handler.UpdateTeacher, adminOnly)
	teachers.DELETE("/:id", handler.DeleteTeacher, adminOnly)
	teachers.GET("/:id/courses", handler.GetTeacherCourses, staffOnly)

	courses := api.Group("/courses", middleware.RequireFeature(db, feature.Courses))
	courses.POST("", handler.CreateCourse, adminOnly)
	courses.GET("", handler.ListCourses)
	courses.GET("/:id", handler.GetCourse)
	courses.PUT("/:id", handler.UpdateCourse, adminOnly)
	courses.DELETE("/:id", handler.DeleteCourse, adminOnly)
	courses.POST("/:id/enroll", handler.EnrollStudent, staffOnly)
	courses.GET("/:id/enrollments", handler.ListEnrollments, staffOnly)

	attendance := api.Group("/attendance", middleware.RequireFeature(db, feature.Attendance))
	attendance.POST("", handler.MarkAttendance, staffOnly)
	attendance.GET("", handler.GetAttendance, staffOnly)

	library := api.Group("/library", middleware.RequireFeature(db, feature.Library))
	library.POST("/resources", handler.CreateLibraryResource, adminOnly)
	library.GET("/resources", handler.ListLibraryResources)
	library.PUT("/resources/:id", handler.UpdateLibraryResource, adminOnly)
	library.DELETE("/resources/:id", handler.DeleteLibraryResource, adminOnly)
	library.POST("/resources/:id/borrow", handler.BorrowResource, staffOnly)
	library.PUT("/borrows/:borrowId/return", handler.ReturnResource, staffOnly)

	finance := api.Group("/finance", middleware.RequireFeature(db, feature.Finance))
	finance.POST("/invoices", handler.CreateInvoice, adminOnly)
	finance.GET("/invoices", handler.ListInvoices, staffOnly)
	finance.GET("/invoices/:id", handler.GetInvoice, staffOnly)
	finance.POST("/invoices/:id/payments", handler.RecordPayment, adminOnly)
	finance.GET("/summary", handler.GetFinanceSummary, adminOnly)

	notifications := api.Group("/notifications")
	notifications.GET("", handler.ListNotifications)
	notifications.GET("/unread", handler.GetUnreadCount)
	notifications.PUT("/:id/read", handler.MarkNotificationRead)
	notifications.POST("/announce", handler.Announce, adminOnly)

	support := api.Group("/support")
	support.POST("/tickets", handler.CreateTicket)
	support.GET("/tickets", handler.ListTickets)
	support.GET("/tickets/:id", handler.GetTicket)
	support.PUT("/tickets/:id", handler.UpdateTicket, adminOnly)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
