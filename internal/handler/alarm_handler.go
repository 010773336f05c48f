package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timesup/internal/middleware"
	"timesup/internal/model"
	"timesup/internal/service"
)

type AlarmHandler struct {
	alarmService *service.AlarmService
}

func NewAlarmHandler(alarmService *service.AlarmService) *AlarmHandler {
	return &AlarmHandler{alarmService: alarmService}
}

func (h *AlarmHandler) List(c *gin.Context) {
	alarms, apiErr := h.alarmService.List(c.Request.Context(), middleware.UserID(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	if alarms == nil {
		alarms = []model.Alarm{}
	}
	c.JSON(http.StatusOK, gin.H{"alarms": alarms})
}

func (h *AlarmHandler) Create(c *gin.Context) {
	var req model.Alarm
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	alarm, apiErr := h.alarmService.Create(c.Request.Context(), middleware.UserID(c), req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"alarm": alarm})
}

func (h *AlarmHandler) Update(c *gin.Context) {
	var patch model.AlarmPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeInvalidJSON(c)
		return
	}

	alarm, apiErr := h.alarmService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), patch)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alarm": alarm})
}

func (h *AlarmHandler) Delete(c *gin.Context) {
	if apiErr := h.alarmService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}
