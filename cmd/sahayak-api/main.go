package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/padmarajkore/sahayak-store/api/swagger"
	"github.com/padmarajkore/sahayak-store/internal/handler"
	"github.com/padmarajkore/sahayak-store/internal/middleware"
	"github.com/padmarajkore/sahayak-store/internal/repository"
	"github.com/padmarajkore/sahayak-store/internal/service"
	"github.com/padmarajkore/sahayak-store/pkg/config"
	"github.com/padmarajkore/sahayak-store/pkg/database"
	"github.com/padmarajkore/sahayak-store/pkg/logger"
	corsmiddleware "github.com/padmarajkore/sahayak-store/pkg/middleware/cors"
	reqidmiddleware "github.com/padmarajkore/sahayak-store/pkg/middleware/requestid"
)

// @title Sahayak Store API
// @version 0.1.0
// @description Persistent session and attendance store for the Sahayak assistant
// @BasePath /
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

	db, err := database.NewSQLite(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to open durable store", "error", err, "path", cfg.Database.Path)
	}
	defer db.Close()

	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	sessionSvc := service.NewSessionService(sessionRepo, metricsSvc, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, metricsSvc, logr)
	summarySvc := service.NewSummaryService(attendanceRepo, metricsSvc, logr)
	exportSvc := service.NewExportService(attendanceRepo, metricsSvc, logr)

	sessionHandler := handler.NewSessionHandler(sessionSvc, cfg.Sessions.DefaultAppID)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	reportHandler := handler.NewReportHandler(summarySvc, exportSvc)

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
		c.JSON(http.StatusOK, gin.H{"status": "ok", "app_name": cfg.AppName})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/sessions/:userId", sessionHandler.List)
		api.POST("/sessions/:userId", sessionHandler.GetOrCreate)
		api.GET("/sessions/:userId/:sessionId", sessionHandler.Get)
		api.PATCH("/sessions/:userId/:sessionId/state", sessionHandler.UpdateState)

		api.POST("/attendance", attendanceHandler.Mark)
		api.POST("/attendance/bulk", attendanceHandler.BulkMark)
		api.GET("/attendance", attendanceHandler.ByDate)
		api.GET("/attendance/students/:studentId", attendanceHandler.ByStudent)
		api.GET("/attendance/classes/:subject", attendanceHandler.ByClass)

		api.GET("/reports/classes/:subject/summary", reportHandler.ClassSummary)
		api.GET("/reports/students/:studentId/rate", reportHandler.StudentRate)
		api.GET("/reports/classes/:subject/register", reportHandler.ClassRegister)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "db_path", cfg.Database.Path)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
