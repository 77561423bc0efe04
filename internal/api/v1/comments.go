package v1

import (
	"github.com/folktalehaven/server/internal/models"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// CreateComment posts the caller's one comment on a folktale.
func CreateComment(c *fiber.Ctx) error {
	id, err := parseFolktaleID(c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	userID, err := currentUserID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	type CommentInput struct {
		Content string `json:"content" validate:"required,max=1000"`
	}
	ci := new(CommentInput)
	if err := utils.StrictBodyParser(c, ci); err != nil {
		return utils.SendError(c, utils.NewError(utils.ErrBadRequest.Code, "Invalid request format"))
	}
	if errs := Validator.Validate(ci); errs != nil {
		return utils.SendValidationErrors(c, errs)
	}

	comment, err := models.AddComment(c.Context(), Redis, DB, id, userID, ci.Content)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// ListComments returns all comments on a folktale with commenter usernames.
func ListComments(c *fiber.Ctx) error {
	id, err := parseFolktaleID(c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	comments, err := models.CommentsFor(c.Context(), Redis, DB, id)
	if err != nil {
		Logger.Error(c.Context()).WithFields("error", err).Logs("Failed to list comments")
		return utils.SendError(c, err)
	}

	return c.JSON(comments)
}
