package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	popularCacheKey = "folktales:popular"
	popularCacheTTL = 30 * time.Second
	popularLimit    = 5
)

// Folktale is the primary content record: the story plus its categorical
// metadata. Views is a monotonic counter incremented on every detail fetch.
type Folktale struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null;index:idx_folktale_title" json:"title" validate:"required,max=200"`
	Slug      string    `gorm:"size:220;not null;uniqueIndex:idx_folktale_slug" json:"slug"`
	Content   string    `gorm:"type:text;not null" json:"content" validate:"required"`
	Region    string    `gorm:"size:100;not null;index:idx_folktale_region" json:"region" validate:"required,max=100"`
	Genre     string    `gorm:"size:100;not null;index:idx_folktale_genre" json:"genre" validate:"required,max=100"`
	AgeGroup  string    `gorm:"size:20;not null;index:idx_folktale_age_group" json:"ageGroup" validate:"required,oneof=Kids Teens Adults"`
	ImageURL  string    `gorm:"size:500;not null" json:"imageUrl" validate:"required,url,max=500"`
	Views     int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Ratings []Rating `gorm:"foreignKey:FolktaleID" json:"ratings"`
}

// Rating is a 1-5 score from one user for one folktale. The composite unique
// index keeps it to one rating per user per folktale.
type Rating struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FolktaleID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_folktale" json:"folktaleId"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_rating_user_folktale" json:"userId"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// FolktaleFilter narrows listings: exact match on region/genre/ageGroup and a
// case-insensitive substring match on title.
type FolktaleFilter struct {
	Region   string
	Genre    string
	AgeGroup string
	Search   string
}

// FolktaleOption configures a Folktale.
type FolktaleOption func(*Folktale)

// CreateFolktale persists a new folktale.
func CreateFolktale(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, f *Folktale, opts ...FolktaleOption) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}

	for _, opt := range opts {
		opt(f)
	}

	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
	f.Region = strings.TrimSpace(f.Region)
	f.Genre = strings.TrimSpace(f.Genre)
	f.AgeGroup = strings.TrimSpace(f.AgeGroup)
	if f.Title == "" || f.Content == "" || f.Region == "" || f.Genre == "" || f.AgeGroup == "" {
		return utils.NewError(utils.ErrBadRequest.Code, "Required fields missing: title, content, region, genre, ageGroup")
	}
	if f.ImageURL == "" {
		return utils.NewError(utils.ErrBadRequest.Code, "Image is required")
	}

	f.Slug = makeSlug(f)

	if err := db.WithContext(ctx).Create(f).Error; err != nil {
		return utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to create folktale")
	}

	invalidatePopular(ctx, rclient)
	return nil
}

// GetFolktaleBy retrieves one folktale by condition, with optional preloading
// of relationships.
func GetFolktaleBy(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, condition string, args []interface{}, preload ...string) (*Folktale, error) {
	var f Folktale
	query := db.WithContext(ctx).Where(condition, args...)
	for _, rel := range preload {
		query = query.Preload(rel)
	}
	if err := query.First(&f).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(utils.ErrNotFound.Code, "Folktale not found")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch folktale")
	}

	return &f, nil
}

// GetFolktales returns one page of folktales matching the filter, plus the
// total match count for pagination. No ordering is applied beyond storage
// order; pages are not stable under concurrent writes.
func GetFolktales(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, page, limit int, filter FolktaleFilter) ([]Folktale, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := db.WithContext(ctx).Model(&Folktale{})
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.Genre != "" {
		query = query.Where("genre = ?", filter.Genre)
	}
	if filter.AgeGroup != "" {
		query = query.Where("age_group = ?", filter.AgeGroup)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to count folktales")
	}

	var folktales []Folktale
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&folktales).Error; err != nil {
		return nil, 0, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch folktales")
	}

	return folktales, total, nil
}

// PopularFolktales returns the top 5 folktales by views, cached briefly in
// redis. Ties break on created_at so the order is reproducible.
func PopularFolktales(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB) ([]Folktale, error) {
	if cached, err := rclient.Get(ctx, popularCacheKey).Result(); err == nil && cached != "" {
		var folktales []Folktale
		if err := json.Unmarshal([]byte(cached), &folktales); err == nil {
			return folktales, nil
		}
	}

	var folktales []Folktale
	if err := db.WithContext(ctx).Order("views DESC, created_at ASC").Limit(popularLimit).Find(&folktales).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch popular folktales")
	}

	if data, err := json.Marshal(folktales); err == nil {
		rclient.Set(ctx, popularCacheKey, data, popularCacheTTL)
	}

	return folktales, nil
}

// RandomFolktale picks one record uniformly via count-then-skip. The offset
// can land past the end if records are deleted between the count and the
// fetch; that surfaces as NotFound rather than an error.
func RandomFolktale(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB) (*Folktale, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&Folktale{}).Count(&count).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to count folktales")
	}
	if count == 0 {
		return nil, utils.NewError(utils.ErrNotFound.Code, "Folktale not found")
	}

	var folktales []Folktale
	offset := rand.Intn(int(count))
	if err := db.WithContext(ctx).Offset(offset).Limit(1).Find(&folktales).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to fetch random folktale")
	}
	if len(folktales) == 0 {
		return nil, utils.NewError(utils.ErrNotFound.Code, "Folktale not found")
	}

	return &folktales[0], nil
}

// IncrementViews bumps the view counter atomically. Reading a detail page is
// deliberately not idempotent; N fetches raise views by N.
func IncrementViews(ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	result := db.WithContext(ctx).Model(&Folktale{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		return utils.WrapError(result.Error, utils.ErrInternalServerError.Code, "Failed to increment views")
	}
	if result.RowsAffected == 0 {
		return utils.NewError(utils.ErrNotFound.Code, "Folktale not found")
	}
	return nil
}

// UpdateFolktale applies option funcs to an existing folktale and saves it.
func UpdateFolktale(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, id uuid.UUID, opts ...FolktaleOption) (*Folktale, error) {
	f, err := GetFolktaleBy(ctx, rclient, db, "id = ?", []interface{}{id})
	if err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(f)
	}
	f.Slug = makeSlug(f)

	// Views is written only by IncrementViews; omitting it here keeps
	// increments that land mid-update from being rolled back.
	if err := db.WithContext(ctx).Omit("views").Save(f).Error; err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to update folktale")
	}

	invalidatePopular(ctx, rclient)
	return f, nil
}

// DeleteFolktale removes the folktale only. Comments and bookmarks that
// reference it stay behind as orphans; callers rely on that contract.
func DeleteFolktale(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, id uuid.UUID) error {
	f, err := GetFolktaleBy(ctx, rclient, db, "id = ?", []interface{}{id})
	if err != nil {
		return err
	}

	if err := db.WithContext(ctx).Delete(f).Error; err != nil {
		return utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to delete folktale")
	}

	invalidatePopular(ctx, rclient)
	return nil
}

// RateFolktale records a user's rating. A second rating from the same user
// hits the composite unique index and comes back as a conflict.
func RateFolktale(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, folktaleID, userID uuid.UUID, rating int) (*Folktale, error) {
	if rating < 1 || rating > 5 {
		return nil, utils.NewError(utils.ErrBadRequest.Code, "Rating must be an integer between 1 and 5")
	}

	if _, err := GetFolktaleBy(ctx, rclient, db, "id = ?", []interface{}{folktaleID}); err != nil {
		return nil, err
	}

	r := &Rating{
		ID:         uuid.New(),
		FolktaleID: folktaleID,
		UserID:     userID,
		Rating:     rating,
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewError(utils.ErrConflict.Code, "You have already rated this folktale")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to save rating")
	}

	return GetFolktaleBy(ctx, rclient, db, "id = ?", []interface{}{folktaleID}, "Ratings")
}

func makeSlug(f *Folktale) string {
	return fmt.Sprintf("%s-%s", slug.Make(f.Title), f.ID.String()[:8])
}

func invalidatePopular(ctx context.Context, rclient *storage.RedisClient) {
	rclient.Del(ctx, popularCacheKey)
}
