package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/takaful-app/takaful/internal/api"
	"github.com/takaful-app/takaful/internal/audit"
	"github.com/takaful-app/takaful/internal/config"
	"github.com/takaful-app/takaful/internal/db"
	"github.com/takaful-app/takaful/internal/middleware"
	"github.com/takaful-app/takaful/internal/observ"
	"github.com/takaful-app/takaful/internal/repository/postgres"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(context.Background()); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	pool := database.Pool()
	tenantRepo := postgres.NewTenantStore(pool)
	userRepo := postgres.NewUserStore(pool)
	residentRepo := postgres.NewResidentStore(pool)
	aidRepo := postgres.NewAidStore(pool)
	childRepo := postgres.NewChildStore(pool)
	financeRepo := postgres.NewFinanceStore(pool)
	notificationRepo := postgres.NewNotificationStore(pool)

	recorder := audit.NewRecorder(notificationRepo, logger)

	authHandler := api.NewAuthHandler(userRepo, tenantRepo, recorder, cfg.JWTSecret, logger)
	userHandler := api.NewUserHandler(userRepo, recorder, logger)
	residentHandler := api.NewResidentHandler(residentRepo, recorder, logger)
	aidHandler := api.NewAidHandler(aidRepo, residentRepo, recorder, logger)
	childHandler := api.NewChildHandler(childRepo, recorder, logger)
	financeHandler := api.NewFinanceHandler(financeRepo, recorder, logger)
	notificationHandler := api.NewNotificationHandler(notificationRepo, logger)
	tenantHandler := api.NewTenantHandler(tenantRepo, userRepo, recorder, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Logger(), gin.Recovery())

	// Health check stays public so load balancers can probe it.
	srv.GET("/api/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv.POST("/api/login", authHandler.Login)

	authed := srv.Group("/api")
	authed.Use(middleware.RequireAuth(cfg.JWTSecret))
	{
		authed.PUT("/user/update_credentials", authHandler.UpdateCredentials)
		authed.GET("/tenant", tenantHandler.Current)

		authed.GET("/residents", residentHandler.List)
		authed.POST("/residents", residentHandler.Create)
		authed.PUT("/residents/:id", residentHandler.Update)
		authed.DELETE("/residents/:id", residentHandler.Delete)
		authed.GET("/residents/stats", residentHandler.Stats)
		authed.GET("/residents/search", residentHandler.Search)
		authed.GET("/export_residents", residentHandler.Export)
		authed.POST("/residents/import", residentHandler.Import)

		authed.GET("/aids", aidHandler.List)
		authed.POST("/aids", aidHandler.Create)
		authed.PUT("/aids/:id", aidHandler.Update)
		authed.DELETE("/aids/:id", aidHandler.Delete)
		authed.POST("/importt_excel", aidHandler.Import)

		authed.GET("/children", childHandler.List)
		authed.POST("/children", childHandler.Create)
		authed.PUT("/children/:id", childHandler.Update)
		authed.DELETE("/children/:id_number", childHandler.Delete)
		authed.GET("/children/:id/last_assistance", childHandler.LastAssistance)
		authed.POST("/assistance", childHandler.AddAssistance)
		authed.GET("/export_children", childHandler.Export)
		authed.POST("/import_children", childHandler.Import)

		authed.GET("/imports", financeHandler.ListImports)
		authed.POST("/imports", financeHandler.AddImport)
		authed.GET("/exports", financeHandler.ListExports)
		authed.POST("/exports", financeHandler.AddExport)

		authed.GET("/notifications", notificationHandler.List)
		authed.POST("/notifications/mark-read", notificationHandler.MarkAllRead)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.DELETE("/residents", residentHandler.DeleteAll)
		admin.POST("/users", userHandler.CreateSupervisor)
		admin.POST("/users/create", tenantHandler.CreateUser)
		admin.GET("/supervisors", userHandler.ListSupervisors)
		admin.DELETE("/users/:id", userHandler.DeleteSupervisor)
		admin.PUT("/user/update_permissions/:id", userHandler.UpdatePermissions)
	}

	logger.Info("starting takaful backend",
		zap.String("port", cfg.Port),
		zap.String("env", cfg.Env),
	)

	return srv.Run(":" + cfg.Port)
}
