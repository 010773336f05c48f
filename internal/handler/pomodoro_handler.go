package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"timesup/internal/middleware"
	"timesup/internal/model"
	"timesup/internal/service"
)

type PomodoroHandler struct {
	pomodoroService *service.PomodoroService
}

type versionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

type updateSettingsRequest struct {
	BaseVersion  int                    `json:"baseVersion"`
	Settings     model.PomodoroSettings `json:"settings"`
	AutoPomodoro *bool                  `json:"autoPomodoro"`
}

type recordSessionRequest struct {
	BaseVersion     int     `json:"baseVersion"`
	Mode            string  `json:"mode"`
	TaskID          *string `json:"taskId"`
	DurationSeconds int     `json:"durationSeconds"`
}

type createTaskRequest struct {
	Text string `json:"text"`
}

func NewPomodoroHandler(pomodoroService *service.PomodoroService) *PomodoroHandler {
	return &PomodoroHandler{pomodoroService: pomodoroService}
}

func (h *PomodoroHandler) GetState(c *gin.Context) {
	state, apiErr := h.pomodoroService.GetState(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	state, apiErr := h.pomodoroService.UpdateSettings(c.Request.Context(), middleware.UserID(c), service.UpdateSettingsInput{
		BaseVersion:  req.BaseVersion,
		Settings:     req.Settings,
		AutoPomodoro: req.AutoPomodoro,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) RecordSession(c *gin.Context) {
	var req recordSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	result, apiErr := h.pomodoroService.RecordSession(c.Request.Context(), middleware.UserID(c), service.RecordSessionInput{
		BaseVersion:     req.BaseVersion,
		Mode:            req.Mode,
		TaskID:          req.TaskID,
		DurationSeconds: req.DurationSeconds,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *PomodoroHandler) ResetSequence(c *gin.Context) {
	var req versionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	state, apiErr := h.pomodoroService.ResetSequence(c.Request.Context(), middleware.UserID(c), req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) GetHistory(c *gin.Context) {
	limit := 50
	rawLimit := c.Query("limit")
	if rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	sessions, apiErr := h.pomodoroService.GetHistory(c.Request.Context(), middleware.UserID(c), limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	if sessions == nil {
		sessions = []model.PomodoroSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *PomodoroHandler) ListTasks(c *gin.Context) {
	tasks, apiErr := h.pomodoroService.ListTasks(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	if tasks == nil {
		tasks = []model.PomodoroTask{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *PomodoroHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	task, apiErr := h.pomodoroService.CreateTask(c.Request.Context(), middleware.UserID(c), req.Text)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (h *PomodoroHandler) ToggleTask(c *gin.Context) {
	task, apiErr := h.pomodoroService.ToggleTask(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *PomodoroHandler) DeleteTask(c *gin.Context) {
	if apiErr := h.pomodoroService.DeleteTask(c.Request.Context(), middleware.UserID(c), c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}
