package main

import (
	"context"
	"os/signal"
	"syscall"

	routes "github.com/folktalehaven/server/internal/api"
	"github.com/folktalehaven/server/internal/auth"
	"github.com/folktalehaven/server/internal/config"
	"github.com/folktalehaven/server/internal/db"
	"github.com/folktalehaven/server/internal/media"
	"github.com/folktalehaven/server/internal/models"
	"github.com/folktalehaven/server/pkg/logger"
	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	log, err := logger.NewLogger(logger.WithOutputDir(cfg.LogDir))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if cfg.JWTSecret == "" {
		log.Error(ctx).Logs("JWT_SECRET is not set")
		panic("JWT_SECRET is required")
	}
	auth.SetSecret(cfg.JWTSecret)

	rclient, err := storage.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize Redis")
		panic(err)
	}
	defer rclient.Close(log)

	gormDB, err := db.NewDB(ctx, cfg.DSN(), models.RegisterModels(), db.WithLogger(log))
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize PostgreSQL database")
		panic("DB init failed")
	}
	defer db.CloseDB(gormDB, log)

	m, err := media.NewStorage(cfg.MediaDir, cfg.MediaBaseURL)
	if err != nil {
		log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to initialize media storage")
		panic("media storage init failed")
	}

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		hashed, err := utils.HashPassword(cfg.AdminPassword)
		if err != nil {
			log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to hash admin password")
			panic("admin seed failed")
		}
		admin, err := models.SeedAdmin(ctx, rclient, gormDB, cfg.AdminUsername, cfg.AdminEmail, hashed)
		if err != nil {
			log.Error(ctx).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to seed admin account")
			panic("admin seed failed")
		}
		log.Info(ctx).WithMeta(utils.Map{"user_id": admin.ID.String()}).Logs("Admin account ready")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	routes.NewRoutes(app, cfg, gormDB, log, rclient, m)

	go func() {
		<-ctx.Done()
		log.Info(context.Background()).Logs("Shutting down server")
		app.Shutdown()
	}()

	log.Info(ctx).WithMeta(utils.Map{"addr": cfg.ServerAddr}).Logs("Folktale Haven server listening")
	if err := app.Listen(cfg.ServerAddr); err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("Server stopped with error")
	}
}
