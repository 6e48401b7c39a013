package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campwerk/nightwatch-api/api/swagger"
	"github.com/campwerk/nightwatch-api/internal/handler"
	"github.com/campwerk/nightwatch-api/internal/middleware"
	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/internal/repository"
	"github.com/campwerk/nightwatch-api/internal/service"
	"github.com/campwerk/nightwatch-api/pkg/cache"
	"github.com/campwerk/nightwatch-api/pkg/config"
	"github.com/campwerk/nightwatch-api/pkg/database"
	"github.com/campwerk/nightwatch-api/pkg/logger"
	corsmiddleware "github.com/campwerk/nightwatch-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campwerk/nightwatch-api/pkg/middleware/requestid"
	"github.com/campwerk/nightwatch-api/pkg/storage"
)

// @title Nightwatch API
// @version 0.1.0
// @description Night-shift assignment and attendance reporting for residential courses
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, notifications downgrade to log-only", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	supervisorRepo := repository.NewSupervisorRepository(db)
	bindingRepo := repository.NewBindingRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	reportRepo := repository.NewReportRepository(db)
	userRepo := repository.NewUserRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(redisClient, cfg.Notifications, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	rosterSvc := service.NewRosterService(courseRepo, roomRepo, groupRepo, studentRepo, supervisorRepo, bindingRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, supervisorRepo, logr)
	assignmentSvc := service.NewAssignmentService(groupRepo, roomRepo, supervisorRepo, bindingRepo, db, notificationSvc, metricsSvc, validate, logr, cfg.Roster)
	shiftSvc := service.NewShiftService(shiftRepo, courseRepo, roomRepo, bindingRepo, metricsSvc, logr, cfg.Scheduler)
	reportSvc := service.NewReportService(reportRepo, shiftRepo, groupRepo, bindingRepo, db, notificationSvc, metricsSvc, validate, logr, cfg.Reports)
	exportSvc := service.NewExportService(reportRepo, courseRepo, nil, logr)
	if archive, err := storage.NewLocalArchive(cfg.Reports.ExportDir); err != nil {
		logr.Sugar().Warnw("export archive unavailable, downloads not kept on disk", "error", err)
	} else {
		exportSvc = service.NewExportService(reportRepo, courseRepo, archive, logr)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc, availabilitySvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	shiftHandler := handler.NewShiftHandler(shiftSvc)
	reportHandler := handler.NewReportHandler(reportSvc, exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/auth/register",
		middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(userRepo, "user_create", "auth"),
		authHandler.Register)

	manage := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleSecretary)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleSecretary, models.RoleSupervisor, models.RoleStaff)

	authed.POST("/courses", manage, rosterHandler.CreateCourse)
	authed.GET("/courses", staff, rosterHandler.ListCourses)
	authed.GET("/courses/:id", staff, rosterHandler.GetCourse)
	authed.PATCH("/courses/:id/status", manage, rosterHandler.UpdateCourseStatus)
	authed.DELETE("/courses/:id", middleware.RequireRoles(models.RoleAdmin),
		middleware.Audit(userRepo, "course_delete", "roster"), rosterHandler.DeleteCourse)

	authed.POST("/rooms", manage, rosterHandler.CreateRoom)
	authed.GET("/rooms", staff, rosterHandler.ListRooms)

	authed.POST("/groups", manage, rosterHandler.CreateGroup)
	authed.GET("/groups", staff, rosterHandler.ListGroups)
	authed.GET("/groups/:id", staff, rosterHandler.GetGroup)

	authed.POST("/students", manage, rosterHandler.CreateStudent)
	authed.GET("/students", staff, rosterHandler.ListStudents)
	authed.PUT("/students/:id/group", manage, rosterHandler.MoveStudent)

	authed.POST("/supervisors", manage, rosterHandler.CreateSupervisor)
	authed.GET("/supervisors", staff, rosterHandler.ListSupervisors)
	authed.PATCH("/supervisors/:id/status", manage, rosterHandler.SetSupervisorStatus)

	authed.PUT("/availability", staff, rosterHandler.DeclareAvailability)
	authed.GET("/availability/:id", staff, rosterHandler.ListAvailability)
	authed.DELETE("/availability/:id", staff, rosterHandler.RemoveAvailability)

	authed.PUT("/groups/:id/room", manage,
		middleware.Audit(userRepo, "group_room_bind", "assignments"), assignmentHandler.AssignGroupToRoom)
	authed.DELETE("/groups/:id/room", manage,
		middleware.Audit(userRepo, "group_room_release", "assignments"), assignmentHandler.RemoveGroupBinding)
	authed.PUT("/groups/:id/supervisors", manage,
		middleware.Audit(userRepo, "group_supervisors_set", "assignments"), assignmentHandler.AssignSupervisors)
	authed.DELETE("/groups/:id/supervisors/:supervisorId", manage,
		middleware.Audit(userRepo, "group_supervisor_release", "assignments"), assignmentHandler.RemoveSupervisorAssignment)

	authed.POST("/shifts/materialize", manage, shiftHandler.Materialize)
	authed.GET("/shifts", staff, shiftHandler.List)
	authed.GET("/shifts/conflicts", manage, shiftHandler.DutyConflicts)
	authed.GET("/shifts/:id", staff, shiftHandler.Get)
	authed.POST("/shifts/:id/duty", manage, shiftHandler.ResolveDuty)

	authed.POST("/reports", staff, reportHandler.Create)
	authed.GET("/reports", staff, reportHandler.List)
	authed.GET("/reports/export", manage, reportHandler.ExportCourse)
	authed.GET("/reports/:id", staff, reportHandler.Get)
	authed.PUT("/reports/:id/attendance", staff, reportHandler.MarkAttendance)
	authed.POST("/reports/:id/submit", staff,
		middleware.Audit(userRepo, "report_submit", "reports"), reportHandler.Submit)
	authed.POST("/reports/:id/review", manage,
		middleware.Audit(userRepo, "report_review", "reports"), reportHandler.Review)
	authed.GET("/reports/:id/export", staff, reportHandler.Export)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
