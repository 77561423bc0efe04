package v1

import (
	"github.com/folktalehaven/server/internal/models"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// CreateBookmark saves a folktale to the caller's bookmark list.
func CreateBookmark(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	type BookmarkInput struct {
		FolktaleID string `json:"folktaleId" validate:"required,uuid"`
	}
	bi := new(BookmarkInput)
	if err := utils.StrictBodyParser(c, bi); err != nil {
		return utils.SendError(c, utils.NewError(utils.ErrBadRequest.Code, "Invalid request format"))
	}
	if errs := Validator.Validate(bi); errs != nil {
		return utils.SendValidationErrors(c, errs)
	}

	folktaleID, err := parseFolktaleID(bi.FolktaleID)
	if err != nil {
		return utils.SendError(c, err)
	}

	bookmark, err := models.AddBookmark(c.Context(), Redis, DB, userID, folktaleID)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(bookmark)
}

// ListBookmarks returns the caller's bookmarks with folktale summaries.
func ListBookmarks(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	bookmarks, err := models.BookmarksFor(c.Context(), Redis, DB, userID)
	if err != nil {
		Logger.Error(c.Context()).WithFields("error", err).Logs("Failed to list bookmarks")
		return utils.SendError(c, err)
	}

	return c.JSON(bookmarks)
}

// RemoveBookmark deletes the caller's bookmark for a folktale.
func RemoveBookmark(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	folktaleID, err := parseFolktaleID(c.Params("folktaleId"))
	if err != nil {
		return utils.SendError(c, err)
	}

	if err := models.RemoveBookmark(c.Context(), Redis, DB, userID, folktaleID); err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Bookmark removed",
	})
}
