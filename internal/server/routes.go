package server

import (
	"github.com/gin-gonic/gin"
	"github.com/goalpost/goalpost/internal/reconcile"
	"github.com/goalpost/goalpost/internal/validate"
	"gorm.io/gorm"
)

// handlerDeps bundles the services handlers close over.
type handlerDeps struct {
	db        *gorm.DB
	svc       *reconcile.Service
	optimizer *validate.Optimizer
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, deps handlerDeps) {
	api := router.Group("/api")

	api.GET("/health", handleHealth(deps.db))
	api.GET("/usage", handleUsage(deps.db))

	api.POST("/workspaces", handleCreateWorkspace(deps.db))
	api.GET("/workspaces/:id/goals", handleListGoals(deps.db))
	api.GET("/workspaces/:id/deliverables", handleListDeliverables(deps.db))

	api.POST("/goals", handleCreateGoal(deps.db))
	api.GET("/goals/:id", handleGetGoal(deps.db))
	api.POST("/goals/:id/sync", handleSyncGoal(deps.svc))
	api.GET("/goals/:id/validation", handleGoalValidation(deps.optimizer))
	api.GET("/goals/:id/progress", handleGoalProgress(deps.db))

	api.POST("/tasks", handleCreateTask(deps.db))
	api.POST("/tasks/:id/complete", handleCompleteTask(deps.db, deps.svc))

	api.POST("/deliverables", handleCreateDeliverable(deps.db))
	api.POST("/deliverables/:id/complete", handleCompleteDeliverable(deps.db, deps.svc))
}
