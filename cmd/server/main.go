package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"timesup/internal/config"
	"timesup/internal/db"
	"timesup/internal/handler"
	"timesup/internal/repository"
	"timesup/internal/router"
	"timesup/internal/service"
	"timesup/migrations"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, db.MigrationsFS(cfg.MigrationsDir, migrations.FS)); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	alarmRepo := repository.NewAlarmRepository(database)
	pomodoroRepo := repository.NewPomodoroRepository(database)

	authService := service.NewAuthService(userRepo, pomodoroRepo, cfg.JWTSecret, cfg.TokenTTL)
	alarmService := service.NewAlarmService(alarmRepo)
	pomodoroService := service.NewPomodoroService(pomodoroRepo)

	engine := router.New(authService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Alarm:    handler.NewAlarmHandler(alarmService),
		Pomodoro: handler.NewPomodoroHandler(pomodoroService),
	}, cfg.CORSOrigins)

	log.Printf("timesup server listening on :%s", cfg.Port)
	if err := engine.Run(":" + cfg.Port); err != nil {
		log.Fatalf("run server: %v", err)
	}
}
