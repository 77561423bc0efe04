package v1

import (
	"fmt"
	"time"

	"github.com/folktalehaven/server/internal/auth"
	"github.com/folktalehaven/server/internal/models"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
	blacklistTTL       = 24 * time.Hour
)

// Register creates an account. New accounts are never admins; the admin flag
// is only ever set by the startup seed.
func Register(c *fiber.Ctx) error {
	type RegisterInput struct {
		Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
		Email    string `json:"email" validate:"required,email,max=100"`
		Password string `json:"password" validate:"required,min=6,max=100"`
	}

	ri := new(RegisterInput)
	if err := utils.StrictBodyParser(c, ri); err != nil {
		Logger.Warn(c.Context()).WithFields("error", err).Logs("Failed to parse register request")
		return utils.SendError(c, utils.NewError(utils.ErrBadRequest.Code, "Invalid request format"))
	}

	if errs := Validator.Validate(ri); errs != nil {
		return utils.SendValidationErrors(c, errs)
	}

	hashed, err := utils.HashPassword(ri.Password)
	if err != nil {
		Logger.Error(c.Context()).WithFields("error", err).Logs("Failed to hash password")
		return utils.SendError(c, utils.ErrInternalServerError)
	}

	user, err := models.NewUser(c.Context(), Redis, DB, ri.Username, ri.Email, hashed)
	if err != nil {
		Logger.Warn(c.Context()).WithFields("error", err).Logs("Failed to create user")
		return utils.SendError(c, err)
	}

	Logger.Info(c.Context()).WithMeta(utils.Map{"user_id": user.ID.String()}).Logs(fmt.Sprintf("User registered: %s", user.Username))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful",
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Login verifies credentials and issues a bearer token. Attempts are
// throttled per IP through redis.
func Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Username string `json:"username" validate:"required,min=3,max=50"`
		Password string `json:"password" validate:"required,min=6,max=100"`
	}

	li := new(LoginInput)
	if err := utils.StrictBodyParser(c, li); err != nil {
		Logger.Warn(c.Context()).WithFields("error", err).Logs("Failed to parse login request")
		return utils.SendError(c, utils.NewError(utils.ErrBadRequest.Code, "Invalid request format"))
	}

	if errs := Validator.Validate(li); errs != nil {
		return utils.SendValidationErrors(c, errs)
	}

	ipKey := "login:ip:" + c.IP()
	if count, err := Redis.Get(c.Context(), ipKey).Int(); err == nil && count >= loginAttemptLimit {
		Logger.Warn(c.Context()).WithMeta(utils.Map{"ip": c.IP()}).Logs("Login rate limit exceeded")
		return utils.SendError(c, utils.NewError(fiber.StatusTooManyRequests, "Too many login attempts. Try again later."))
	}
	Redis.Incr(c.Context(), ipKey)
	Redis.Expire(c.Context(), ipKey, loginAttemptWindow)

	user, err := models.GetUserBy(c.Context(), Redis, DB, "username = ?", []interface{}{li.Username})
	if err != nil {
		Logger.Warn(c.Context()).WithMeta(utils.Map{"username": li.Username}).Logs("Login attempt for unknown user")
		return utils.SendError(c, utils.NewError(utils.ErrUnauthorized.Code, "Invalid username or password"))
	}

	if err := utils.ComparePasswords(user.Password, li.Password); err != nil {
		Logger.Warn(c.Context()).WithMeta(utils.Map{"username": li.Username}).Logs("Invalid password provided")
		return utils.SendError(c, utils.NewError(utils.ErrUnauthorized.Code, "Invalid username or password"))
	}

	token, err := auth.GenerateAccessToken(user.ID.String(), user.IsAdmin)
	if err != nil {
		Logger.Error(c.Context()).WithFields("error", err).Logs("Failed to generate access token")
		return utils.SendError(c, utils.ErrInternalServerError)
	}

	Redis.Del(c.Context(), ipKey)

	Logger.Info(c.Context()).WithMeta(utils.Map{"user_id": user.ID.String()}).Logs(fmt.Sprintf("User logged in: %s", user.Username))

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"isAdmin":  user.IsAdmin,
		},
	})
}

// Logout blacklists the presented token for the remainder of its lifetime.
func Logout(c *fiber.Ctx) error {
	token := auth.BearerToken(c)
	if token != "" {
		key := "blacklist:access:" + token
		if err := Redis.Set(c.Context(), key, "invalid", blacklistTTL).Err(); err != nil {
			Logger.Warn(c.Context()).WithFields("error", err).Logs("Failed to blacklist access token")
		}
	}

	Logger.Info(c.Context()).Logs("User logged out")

	return c.JSON(fiber.Map{
		"message": "Logout successful",
	})
}

// Me returns the authenticated user's account summary.
func Me(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	user, err := models.GetUserByID(c.Context(), Redis, DB, userID)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"isAdmin":  user.IsAdmin,
	})
}
