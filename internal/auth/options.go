package auth

import (
	"github.com/folktalehaven/server/pkg/logger"
	storage "github.com/folktalehaven/server/pkg/redis"
	"gorm.io/gorm"
)

// Options carries the collaborators the auth middleware needs.
type Options struct {
	DB      *gorm.DB
	Rclient *storage.RedisClient
	Logger  *logger.Logger
}
