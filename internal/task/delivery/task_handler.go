package delivery

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskmind-backend/internal/task/dto"
	"taskmind-backend/internal/task/usecase"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{taskUsecase: taskUsecase}
}

// GetTasks lists the user's tasks with filters and pagination
func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID := c.GetString("userID")

	var query dto.ListTasksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	response, err := h.taskUsecase.ListTasks(userID, query)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidStatus) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list tasks"})
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetTaskByID returns one task
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	userID := c.GetString("userID")

	task, err := h.taskUsecase.GetTaskByID(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load task"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus applies a user-driven status change
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}

	task, err := h.taskUsecase.UpdateTaskStatus(userID, c.Param("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		case errors.Is(err, usecase.ErrInvalidStatus), errors.Is(err, usecase.ErrSnoozeRequiresTime):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update task"})
		}
		return
	}
	c.JSON(http.StatusOK, task)
}
