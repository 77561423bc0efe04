// Package routes assembles the middleware stack and the route table.
package routes

import (
	"time"

	v1 "github.com/folktalehaven/server/internal/api/v1"
	"github.com/folktalehaven/server/internal/auth"
	"github.com/folktalehaven/server/internal/config"
	"github.com/folktalehaven/server/internal/media"
	"github.com/folktalehaven/server/pkg/logger"
	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// NewRoutes installs middleware, wires the handler package, and registers
// every route. Fixed paths under /folktales are registered before the :id
// routes so they are not swallowed by the parameter match. Shutdown of the
// collaborators belongs to the caller.
func NewRoutes(app *fiber.App, cfg *config.Config, db *gorm.DB, log *logger.Logger, rclient *storage.RedisClient, m *media.Storage) {
	app.Use(
		logger.SetupLogger(log),
		recover.New(),
		cors.New(
			cors.Config{
				AllowOrigins:     cfg.AllowOrigins,
				AllowCredentials: true,
				AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			},
		),
		compress.New(
			compress.Config{
				Level: compress.LevelBestCompression,
			},
		),
		limiter.New(
			limiter.Config{
				Expiration: 1 * time.Minute,
				Max:        100,
				KeyGenerator: func(c *fiber.Ctx) string {
					return c.IP()
				},
			},
		),
	)
	app.Use(log.Middleware())

	v1.Setup(db, rclient, log, m)

	opt := auth.Options{
		DB:      db,
		Rclient: rclient,
		Logger:  log,
	}
	authed := auth.RequireAuth(opt)
	admin := auth.RequireAdmin()

	app.Static("/media", m.Dir())

	app.Get("/healthz", v1.Healthz)

	ag := app.Group("/auth")
	ag.Post("/register", v1.Register)
	ag.Post("/login", v1.Login)
	ag.Post("/logout", authed, v1.Logout)
	ag.Get("/me", authed, v1.Me)

	fg := app.Group("/folktales")
	fg.Get("/", v1.ListFolktales)
	fg.Get("/popular", v1.PopularFolktales)
	fg.Get("/random", v1.RandomFolktale)
	fg.Get("/bookmark", authed, v1.ListBookmarks)
	fg.Post("/bookmarks", authed, v1.CreateBookmark)
	fg.Delete("/bookmarks/:folktaleId", authed, v1.RemoveBookmark)
	fg.Post("/", authed, admin, v1.CreateFolktale)
	fg.Put("/:id", authed, admin, v1.UpdateFolktale)
	fg.Delete("/:id", authed, admin, v1.DeleteFolktale)
	fg.Get("/:id", v1.GetFolktale)
	fg.Post("/:id/rate", authed, v1.RateFolktale)
	fg.Post("/:id/comments", authed, v1.CreateComment)
	fg.Get("/:id/comments", v1.ListComments)
}
