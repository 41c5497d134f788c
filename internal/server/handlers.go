package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goalpost/goalpost/internal/models"
	"github.com/goalpost/goalpost/internal/reconcile"
	"github.com/goalpost/goalpost/internal/validate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func handleHealth(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := gdb.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleUsage(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		usage, err := UsageCounts(gdb.WithContext(c.Request.Context()))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, usage)
	}
}

type createWorkspaceRequest struct {
	Name string `json:"name" binding:"required"`
}

func handleCreateWorkspace(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createWorkspaceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ws := models.Workspace{Name: req.Name, Status: models.WorkspaceActive}
		if err := gdb.WithContext(c.Request.Context()).Create(&ws).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, ws)
	}
}

func handleListGoals(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		wsID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var goals []models.Goal
		q := gdb.WithContext(c.Request.Context()).Where("workspace_id = ?", wsID)
		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}
		if err := q.Order("created_at ASC").Find(&goals).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"goals": goals})
	}
}

func handleListDeliverables(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		wsID, ok := parseID(c, "id")
		if !ok {
			return
		}
		q := gdb.WithContext(c.Request.Context()).Where("workspace_id = ?", wsID)
		if c.Query("orphaned") == "true" {
			q = q.Where("goal_id IS NULL")
		}
		var deliverables []models.Deliverable
		if err := q.Order("created_at ASC").Find(&deliverables).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deliverables": deliverables})
	}
}

type createGoalRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id" binding:"required"`
	Description string    `json:"description" binding:"required"`
	MetricType  string    `json:"metric_type"`
	TargetValue float64   `json:"target_value" binding:"required,gt=0"`
}

func handleCreateGoal(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createGoalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		goal := models.Goal{
			WorkspaceID: req.WorkspaceID,
			Description: req.Description,
			MetricType:  req.MetricType,
			TargetValue: req.TargetValue,
			Status:      models.GoalActive,
		}
		if goal.MetricType == "" {
			goal.MetricType = "deliverables"
		}
		if err := gdb.WithContext(c.Request.Context()).Create(&goal).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, goal)
	}
}

func handleGetGoal(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		goalID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var goal models.Goal
		if err := gdb.WithContext(c.Request.Context()).First(&goal, "id = ?", goalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, goal)
	}
}

func handleSyncGoal(svc *reconcile.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		goalID, ok := parseID(c, "id")
		if !ok {
			return
		}
		res := svc.SyncGoal(c.Request.Context(), goalID)
		if res.Err != nil {
			if errors.Is(res.Err, reconcile.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": res.Err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func handleGoalValidation(optimizer *validate.Optimizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if optimizer == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "validation optimizer not configured"})
			return
		}
		goalID, ok := parseID(c, "id")
		if !ok {
			return
		}
		verdict, err := optimizer.Evaluate(c.Request.Context(), goalID)
		if err != nil {
			if errors.Is(err, validate.ErrGoalNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "goal not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, verdict)
	}
}

func handleGoalProgress(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		goalID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var entries []models.ProgressEntry
		if err := gdb.WithContext(c.Request.Context()).
			Where("goal_id = ?", goalID).
			Order("created_at ASC").
			Find(&entries).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	}
}

type createTaskRequest struct {
	WorkspaceID uuid.UUID  `json:"workspace_id" binding:"required"`
	GoalID      *uuid.UUID `json:"goal_id"`
	Title       string     `json:"title" binding:"required"`
}

func handleCreateTask(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task := models.Task{
			WorkspaceID: req.WorkspaceID,
			GoalID:      req.GoalID,
			Title:       req.Title,
			Status:      models.TaskPending,
		}
		if err := gdb.WithContext(c.Request.Context()).Create(&task).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

type completeTaskRequest struct {
	Result string `json:"result"`
}

func handleCompleteTask(gdb *gorm.DB, svc *reconcile.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req completeTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		result := gdb.WithContext(c.Request.Context()).Model(&models.Task{}).
			Where("id = ? AND status NOT IN ?", taskID, []string{models.TaskCompleted, models.TaskFailed}).
			Updates(map[string]interface{}{
				"status":       models.TaskCompleted,
				"result":       req.Result,
				"completed_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "task not found or already terminal"})
			return
		}

		sync := svc.OnTaskCompleted(c.Request.Context(), taskID)
		c.JSON(http.StatusOK, gin.H{"task_id": taskID, "sync": sync})
	}
}

type createDeliverableRequest struct {
	WorkspaceID uuid.UUID  `json:"workspace_id" binding:"required"`
	GoalID      *uuid.UUID `json:"goal_id"`
	Title       string     `json:"title" binding:"required"`
	Content     string     `json:"content"`
}

func handleCreateDeliverable(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createDeliverableRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		d := models.Deliverable{
			WorkspaceID: req.WorkspaceID,
			GoalID:      req.GoalID,
			Title:       req.Title,
			Content:     req.Content,
			Status:      models.DeliverableDraft,
		}
		if err := gdb.WithContext(c.Request.Context()).Create(&d).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

type completeDeliverableRequest struct {
	QualityScore float64 `json:"quality_score"`
}

func handleCompleteDeliverable(gdb *gorm.DB, svc *reconcile.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		deliverableID, ok := parseID(c, "id")
		if !ok {
			return
		}
		var req completeDeliverableRequest
		if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		now := time.Now()
		result := gdb.WithContext(c.Request.Context()).Model(&models.Deliverable{}).
			Where("id = ? AND status != ?", deliverableID, models.DeliverableCompleted).
			Updates(map[string]interface{}{
				"status":        models.DeliverableCompleted,
				"quality_score": req.QualityScore,
				"completed_at":  now,
				"updated_at":    now,
			})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "deliverable not found or already completed"})
			return
		}

		sync := svc.OnDeliverableCompleted(c.Request.Context(), deliverableID)
		c.JSON(http.StatusOK, gin.H{"deliverable_id": deliverableID, "sync": sync})
	}
}

// parseID parses the named path parameter as a UUID, writing a 400 response
// on failure.
func parseID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id: " + c.Param(name)})
		return uuid.Nil, false
	}
	return id, true
}
