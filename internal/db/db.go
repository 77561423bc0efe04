// Package db initializes the GORM connection backing the content store.
package db

import (
	"context"

	"github.com/folktalehaven/server/pkg/logger"
	"github.com/folktalehaven/server/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type DBOptions func(*gorm.DB) error

// NewDB opens a postgres connection, applies options, and migrates the given
// models. TranslateError makes unique violations surface as
// gorm.ErrDuplicatedKey so duplicate bookmarks/ratings/comments can be told
// apart from other failures. Foreign key constraints are not created during
// migration: deleting a folktale must leave its comments and bookmarks in
// place (the documented orphan contract).
func NewDB(ctx context.Context, dsn string, models []interface{}, opts ...DBOptions) (*gorm.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "DB initialization canceled")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, utils.NewError(utils.ErrInternalServerError.Code, "Failed to connect to Database", err.Error())
	}

	for _, opt := range opts {
		if err := opt(db); err != nil {
			return nil, utils.NewError(utils.ErrInternalServerError.Code, "Failed to apply DB options", err.Error())
		}
	}

	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return nil, utils.NewError(utils.ErrInternalServerError.Code, "Failed to migrate models", err.Error())
	}

	return db, nil
}

// CloseDB closes the underlying sql.DB handle.
func CloseDB(db *gorm.DB, log *logger.Logger) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to get DB handle for closing")
		return utils.NewError(utils.ErrInternalServerError.Code, "Failed to close database", err.Error())
	}

	if err := sqlDB.Close(); err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("PostgreSQL database close failed")
		return utils.NewError(utils.ErrInternalServerError.Code, "Failed to close database", err.Error())
	}
	log.Info(context.Background()).Logs("PostgreSQL database connection closed")
	return nil
}
