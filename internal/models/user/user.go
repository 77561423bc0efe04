package models

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const userCacheTTL = 30 * time.Minute

// User is an account known to the identity provider. The admin flag grants
// content-management rights over folktales.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Username string `gorm:"size:50;not null;uniqueIndex:idx_user_username" json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `gorm:"size:100;not null;uniqueIndex:idx_user_email" json:"email,omitempty" validate:"required,email,max=100"`
	Password string `gorm:"size:255;not null" json:"-" validate:"required,min=6"`
	IsAdmin  bool   `gorm:"not null;default:false" json:"isAdmin"`
}

// UserOption configures a User.
type UserOption func(*User)

// NewUser creates a user. Password must already be hashed by the caller.
func NewUser(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, username, email, password string, opts ...UserOption) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "user creation canceled")
	}

	u := &User{
		ID:       uuid.New(),
		Username: strings.TrimSpace(username),
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	}

	for _, opt := range opts {
		opt(u)
	}

	if u.Username == "" || u.Email == "" || u.Password == "" {
		return nil, utils.NewError(utils.ErrBadRequest.Code, "Required fields missing: username, email, password")
	}

	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, utils.NewError(utils.ErrConflict.Code, "Username or email already exists")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to create user")
	}

	CacheUser(ctx, rclient, u)

	return u, nil
}

// GetUserBy retrieves a user by condition.
func GetUserBy(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, condition string, args []interface{}) (*User, error) {
	var u User
	if err := db.WithContext(ctx).Where(condition, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewError(utils.ErrNotFound.Code, "User not found")
		}
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to get user")
	}

	return &u, nil
}

// GetUserByID retrieves a user through the redis cache, falling back to the
// database and refreshing the cache on a miss.
func GetUserByID(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, id uuid.UUID) (*User, error) {
	key := "user:" + id.String()
	if cached, err := rclient.Get(ctx, key).Result(); err == nil && cached != "" {
		var u User
		if err := json.Unmarshal([]byte(cached), &u); err == nil {
			return &u, nil
		}
	}

	u, err := GetUserBy(ctx, rclient, db, "id = ?", []interface{}{id})
	if err != nil {
		return nil, err
	}

	CacheUser(ctx, rclient, u)
	return u, nil
}

// CacheUser stores the user in redis for the auth middleware's fast path.
// Cache failures are not fatal.
func CacheUser(ctx context.Context, rclient *storage.RedisClient, u *User) {
	userJSON, err := json.Marshal(u)
	if err != nil {
		return
	}
	rclient.Set(ctx, "user:"+u.ID.String(), userJSON, userCacheTTL)
}

// SeedAdmin ensures an admin account exists with the given credentials.
// Called at startup; a no-op when the username is already taken.
func SeedAdmin(ctx context.Context, rclient *storage.RedisClient, db *gorm.DB, username, email, password string) (*User, error) {
	existing, err := GetUserBy(ctx, rclient, db, "username = ?", []interface{}{username})
	if err == nil {
		return existing, nil
	}
	var appErr *utils.CustomError
	if !errors.As(err, &appErr) || appErr.Code != utils.ErrNotFound.Code {
		return nil, err
	}

	return NewUser(ctx, rclient, db, username, email, password, WithIsAdmin(true))
}
