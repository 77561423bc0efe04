package auth

import (
	"strings"

	"github.com/folktalehaven/server/internal/models"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// BearerToken extracts the bearer credential from the Authorization header.
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth verifies the bearer token on every request: blacklist check,
// signature check, then a user lookup through the redis cache. Identity is
// never carried between requests. The user's id and admin flag land in
// request locals; the admin flag comes from the stored user, not the claim.
func RequireAuth(opt Options) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return utils.SendError(c, utils.NewError(utils.ErrUnauthorized.Code, "Authentication required"))
		}

		blacklistKey := "blacklist:access:" + token
		if opt.Rclient.Exists(c.Context(), blacklistKey).Val() > 0 {
			opt.Logger.Warn(c.Context()).Logs("Attempted use of blacklisted access token")
			return utils.SendError(c, utils.NewError(utils.ErrUnauthorized.Code, "Token has been invalidated"))
		}

		claims, err := VerifyToken(token)
		if err != nil {
			opt.Logger.Warn(c.Context()).WithFields("error", err).Logs("Access token invalid")
			return utils.SendError(c, utils.NewError(utils.ErrUnauthorized.Code, "Invalid access token"))
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return utils.SendError(c, utils.NewError(utils.ErrUnauthorized.Code, "Invalid access token"))
		}

		user, err := models.GetUserByID(c.Context(), opt.Rclient, opt.DB, userID)
		if err != nil {
			opt.Logger.Warn(c.Context()).WithFields("user_id", claims.UserID).Logs("User not found during token validation")
			return utils.SendError(c, utils.NewError(utils.ErrUnauthorized.Code, "User not found"))
		}

		if claims.IsAdmin != user.IsAdmin {
			opt.Logger.Warn(c.Context()).WithFields("user_id", user.ID).Logs("Admin flag mismatch between token and user record")
		}

		c.Locals("user_id", user.ID.String())
		c.Locals("is_admin", user.IsAdmin)

		return c.Next()
	}
}

// RequireAdmin guards content-management routes. Must run after RequireAuth.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, ok := c.Locals("is_admin").(bool)
		if !ok || !isAdmin {
			return utils.SendError(c, utils.NewError(utils.ErrForbidden.Code, "Admin access required"))
		}
		return c.Next()
	}
}
