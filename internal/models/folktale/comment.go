package models

import (
	"context"
	"errors"
	"strings"
	"time"

	user "github.com/folktalehaven/server/internal/models/user"
	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is one user's comment on one folktale. The composite unique index
// keeps it to a single comment per (user, folktale) pair.
type Comment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FolktaleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_user_folktale;index:idx_comment_folktale" json:"folktaleId"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_comment_user_folktale" json:"userId"`
	Content    string    `gorm:"type:text;not null" json:"content" validate:"required,max=1000"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"timestamp"`

	User user.User `gorm:"foreignKey:UserID" json:"user"`
}

// AddComment creates a comment and returns it joined with the commenter's
// username. A second comment from the same user on the same folktale is a
// conflict.
func AddComment(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, folktaleID, userID uuid.UUID, content string) (*Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, utils.NewError(utils.ErrBadRequest.Code, "Comment content is required")
	}

	if _, err := GetFolktaleBy(ctx, rclient, db, "id = ?", []interface{}{folktaleID}); err != nil {
		return nil, err
	}

	comment := &Comment{
		ID:         uuid.New(),
		FolktaleID: folktaleID,
		UserID:     userID,
		Content:    content,
	}
	if err := db.WithContext(ctx).Create(comment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewError(utils.ErrConflict.Code, "You have already commented on this folktale")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to save comment")
	}

	var populated Comment
	if err := db.WithContext(ctx).Preload("User", selectUsername).First(&populated, "id = ?", comment.ID).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch comment")
	}

	return &populated, nil
}

// CommentsFor lists all comments on a folktale in storage order, joined with
// commenter usernames.
func CommentsFor(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, folktaleID uuid.UUID) ([]Comment, error) {
	var comments []Comment
	if err := db.WithContext(ctx).Where("folktale_id = ?", folktaleID).Preload("User", selectUsername).Find(&comments).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch comments")
	}

	return comments, nil
}

// selectUsername trims the joined user record to what comment responses need.
func selectUsername(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username")
}
