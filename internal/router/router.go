package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timesup/internal/handler"
	"timesup/internal/middleware"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Alarm    *handler.AlarmHandler
	Pomodoro *handler.PomodoroHandler
}

func New(tokens middleware.TokenParser, h Handlers, corsOrigins []string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	requireUser := middleware.Auth(tokens)

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", requireUser, h.Auth.Me)

	alarms := api.Group("/alarms")
	alarms.Use(requireUser)
	alarms.GET("", h.Alarm.List)
	alarms.POST("", h.Alarm.Create)
	alarms.PUT("/:id", h.Alarm.Update)
	alarms.DELETE("/:id", h.Alarm.Delete)

	pomodoro := api.Group("/pomodoro")
	pomodoro.Use(requireUser)
	pomodoro.GET("/state", h.Pomodoro.GetState)
	pomodoro.PUT("/settings", h.Pomodoro.UpdateSettings)
	pomodoro.POST("/sessions", h.Pomodoro.RecordSession)
	pomodoro.POST("/sequence/reset", h.Pomodoro.ResetSequence)
	pomodoro.GET("/history", h.Pomodoro.GetHistory)
	pomodoro.GET("/tasks", h.Pomodoro.ListTasks)
	pomodoro.POST("/tasks", h.Pomodoro.CreateTask)
	pomodoro.POST("/tasks/:id/toggle", h.Pomodoro.ToggleTask)
	pomodoro.DELETE("/tasks/:id", h.Pomodoro.DeleteTask)

	return engine
}
