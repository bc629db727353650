package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/exam-assign-api/internal/app"
	"github.com/noah-isme/exam-assign-api/internal/handler"
	"github.com/noah-isme/exam-assign-api/internal/middleware"
	"github.com/noah-isme/exam-assign-api/internal/models"
	"github.com/noah-isme/exam-assign-api/pkg/config"
	"github.com/noah-isme/exam-assign-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/exam-assign-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/exam-assign-api/pkg/middleware/requestid"
)

func registerRoutes(r *gin.Engine, a *app.App) {
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(a.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics))

	metricsHandler := handler.NewMetricsHandler(a.Metrics, a.DB)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if a.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	teacherHandler := handler.NewTeacherHandler(a.Teachers)
	assignmentHandler := handler.NewAssignmentHandler(a.Assignments, a.Teachers)
	setupHandler := handler.NewSetupHandler(a.Pools)
	analyticsHandler := handler.NewAnalyticsHandler(a.Analytics)
	exportHandler := handler.NewExportHandler(a.Exports)
	meHandler := handler.NewMeHandler(a.Teachers, a.Assignments, a.Analytics)
	eventsHandler := handler.NewEventsHandler(a.Feed, a.Logger)

	api := r.Group(a.Config.APIPrefix)
	api.Use(middleware.WithResponseMeta(), middleware.JWT(a.Auth))

	admin := api.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/teachers", teacherHandler.List)
		admin.POST("/teachers", teacherHandler.Create)
		admin.GET("/teachers/:id", teacherHandler.Get)
		admin.PUT("/teachers/:id", teacherHandler.Update)
		admin.DELETE("/teachers/:id", teacherHandler.Delete)

		admin.GET("/setup", setupHandler.Get)
		admin.PUT("/setup", setupHandler.Put)
		admin.GET("/setup/options", setupHandler.Options)

		admin.GET("/assignments", assignmentHandler.List)
		admin.POST("/assignments", assignmentHandler.Create)
		admin.POST("/assignments/complete", assignmentHandler.CompleteAll)
		admin.GET("/assignments/:id", assignmentHandler.Get)
		admin.PUT("/assignments/:id", assignmentHandler.Update)
		admin.DELETE("/assignments/:id", assignmentHandler.Delete)

		admin.GET("/analytics", analyticsHandler.Report)
		admin.GET("/exports/:type", exportHandler.Download)
		admin.GET("/metrics/summary", metricsHandler.Summary)
	}

	staff := api.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	{
		staff.POST("/assignments/:id/complete", assignmentHandler.Complete)
		staff.GET("/events", eventsHandler.Stream)
	}

	teacher := api.Group("/me")
	teacher.Use(middleware.RequireRoles(models.RoleTeacher))
	{
		teacher.GET("/assignments", meHandler.Assignments)
		teacher.GET("/analytics", meHandler.Analytics)
	}
}
