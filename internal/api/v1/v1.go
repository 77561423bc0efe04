// Package v1 holds the HTTP handlers for the public API.
package v1

import (
	"github.com/folktalehaven/server/internal/media"
	"github.com/folktalehaven/server/pkg/logger"
	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	Redis     *storage.RedisClient
	Logger    *logger.Logger
	Media     *media.Storage
	Validator = utils.NewValidator()
)

// Setup wires the handler package to its collaborators. Called once from the
// router before any route is registered.
func Setup(db *gorm.DB, rclient *storage.RedisClient, log *logger.Logger, m *media.Storage) {
	DB = db
	Redis = rclient
	Logger = log
	Media = m
}

// currentUserID reads the authenticated user's id placed in locals by the
// auth middleware.
func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, ok := c.Locals("user_id").(string)
	if !ok || raw == "" {
		return uuid.Nil, utils.NewError(utils.ErrUnauthorized.Code, "Authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, utils.NewError(utils.ErrUnauthorized.Code, "Authentication required")
	}
	return id, nil
}
