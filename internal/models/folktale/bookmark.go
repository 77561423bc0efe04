package models

import (
	"context"
	"errors"
	"time"

	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bookmark is a user's saved reference to a folktale, unique per
// (user, folktale) pair at the database level. A concurrent duplicate attempt
// fails on the index rather than on a racy pre-check.
type Bookmark struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_folktale;index:idx_bookmark_user" json:"userId"`
	FolktaleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bookmark_user_folktale" json:"folktaleId"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`

	Folktale Folktale `gorm:"foreignKey:FolktaleID" json:"folktale"`
}

// AddBookmark saves a folktale for a user. Rejects when the folktale does not
// exist and conflicts when the bookmark already does.
func AddBookmark(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, userID, folktaleID uuid.UUID) (*Bookmark, error) {
	if _, err := GetFolktaleBy(ctx, rclient, db, "id = ?", []interface{}{folktaleID}); err != nil {
		return nil, err
	}

	bookmark := &Bookmark{
		ID:         uuid.New(),
		UserID:     userID,
		FolktaleID: folktaleID,
	}
	if err := db.WithContext(ctx).Create(bookmark).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewError(utils.ErrConflict.Code, "Folktale already bookmarked")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to save bookmark")
	}

	var populated Bookmark
	if err := db.WithContext(ctx).Preload("Folktale", selectFolktaleSummary).First(&populated, "id = ?", bookmark.ID).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch bookmark")
	}

	return &populated, nil
}

// BookmarksFor lists the caller's bookmarks joined with a folktale summary.
func BookmarksFor(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, userID uuid.UUID) ([]Bookmark, error) {
	var bookmarks []Bookmark
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Preload("Folktale", selectFolktaleSummary).Find(&bookmarks).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch bookmarks")
	}

	return bookmarks, nil
}

// RemoveBookmark deletes the matching bookmark; NotFound when absent.
func RemoveBookmark(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, userID, folktaleID uuid.UUID) error {
	result := db.WithContext(ctx).Where("user_id = ? AND folktale_id = ?", userID, folktaleID).Delete(&Bookmark{})
	if result.Error != nil {
		return utils.WrapError(result.Error, utils.ErrInternalServerError.Code, "Failed to remove bookmark")
	}
	if result.RowsAffected == 0 {
		return utils.NewError(utils.ErrNotFound.Code, "Bookmark not found")
	}

	return nil
}

// selectFolktaleSummary trims the joined folktale to the fields bookmark
// responses carry.
func selectFolktaleSummary(db *gorm.DB) *gorm.DB {
	return db.Select("id", "title", "region", "genre", "image_url")
}
