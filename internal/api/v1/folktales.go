package v1

import (
	"mime/multipart"

	"github.com/folktalehaven/server/internal/models"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// folktaleInput carries the text fields of the admin content form. The image
// arrives as a separate multipart file.
type folktaleInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	Content  string `json:"content" validate:"required"`
	Region   string `json:"region" validate:"required,max=100"`
	Genre    string `json:"genre" validate:"required,max=100"`
	AgeGroup string `json:"ageGroup" validate:"required,oneof=Kids Teens Adults"`
}

func folktaleFormInput(c *fiber.Ctx) *folktaleInput {
	return &folktaleInput{
		Title:    c.FormValue("title"),
		Content:  c.FormValue("content"),
		Region:   c.FormValue("region"),
		Genre:    c.FormValue("genre"),
		AgeGroup: c.FormValue("ageGroup"),
	}
}

// parseFolktaleID treats malformed ids the same as missing records.
func parseFolktaleID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, utils.NewError(utils.ErrNotFound.Code, "Folktale not found")
	}
	return id, nil
}

// ListFolktales returns one page of folktales with the total match count.
func ListFolktales(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	filter := models.FolktaleFilter{
		Region:   c.Query("region"),
		Genre:    c.Query("genre"),
		AgeGroup: c.Query("ageGroup"),
		Search:   c.Query("search"),
	}

	folktales, total, err := models.GetFolktales(c.Context(), Redis, DB, page, limit, filter)
	if err != nil {
		Logger.Error(c.Context()).WithFields("error", err).Logs("Failed to list folktales")
		return utils.SendError(c, err)
	}

	return c.JSON(fiber.Map{
		"folktales": folktales,
		"total":     total,
	})
}

// PopularFolktales returns the top five folktales by views.
func PopularFolktales(c *fiber.Ctx) error {
	folktales, err := models.PopularFolktales(c.Context(), Redis, DB)
	if err != nil {
		Logger.Error(c.Context()).WithFields("error", err).Logs("Failed to fetch popular folktales")
		return utils.SendError(c, err)
	}

	return c.JSON(folktales)
}

// RandomFolktale returns one record picked uniformly at random.
func RandomFolktale(c *fiber.Ctx) error {
	folktale, err := models.RandomFolktale(c.Context(), Redis, DB)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(folktale)
}

// GetFolktale fetches one record and bumps its view counter as a side effect.
func GetFolktale(c *fiber.Ctx) error {
	id, err := parseFolktaleID(c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	if err := models.IncrementViews(c.Context(), DB, id); err != nil {
		return utils.SendError(c, err)
	}

	folktale, err := models.GetFolktaleBy(c.Context(), Redis, DB, "id = ?", []interface{}{id}, "Ratings")
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(folktale)
}

// CreateFolktale handles the admin content form: validates fields, ingests
// the image, then persists the record. The image is uploaded first; if the
// save fails afterwards the stored image is orphaned (accepted leak).
func CreateFolktale(c *fiber.Ctx) error {
	input := folktaleFormInput(c)
	if errs := Validator.Validate(input); errs != nil {
		return utils.SendValidationErrors(c, errs)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return utils.SendError(c, utils.NewError(utils.ErrBadRequest.Code, "Image is required"))
	}

	imageURL, err := saveImage(c, fh)
	if err != nil {
		return utils.SendError(c, err)
	}

	folktale := &models.Folktale{
		Title:    input.Title,
		Content:  input.Content,
		Region:   input.Region,
		Genre:    input.Genre,
		AgeGroup: input.AgeGroup,
		ImageURL: imageURL,
	}
	if err := models.CreateFolktale(c.Context(), Redis, DB, folktale); err != nil {
		Logger.Error(c.Context()).WithFields("error", err).Logs("Failed to create folktale")
		return utils.SendError(c, err)
	}

	Logger.Info(c.Context()).WithMeta(utils.Map{"folktale_id": folktale.ID.String()}).Logs("Folktale created")

	return c.Status(fiber.StatusCreated).JSON(folktale)
}

// UpdateFolktale revalidates every text field and replaces the image only
// when a new file was supplied.
func UpdateFolktale(c *fiber.Ctx) error {
	id, err := parseFolktaleID(c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	input := folktaleFormInput(c)
	if errs := Validator.Validate(input); errs != nil {
		return utils.SendValidationErrors(c, errs)
	}

	imageURL := ""
	if fh, err := c.FormFile("image"); err == nil && fh != nil {
		imageURL, err = saveImage(c, fh)
		if err != nil {
			return utils.SendError(c, err)
		}
	}

	folktale, err := models.UpdateFolktale(c.Context(), Redis, DB, id,
		models.WithTitle(input.Title),
		models.WithContent(input.Content),
		models.WithRegion(input.Region),
		models.WithGenre(input.Genre),
		models.WithAgeGroup(input.AgeGroup),
		models.WithImageURL(imageURL),
	)
	if err != nil {
		return utils.SendError(c, err)
	}

	Logger.Info(c.Context()).WithMeta(utils.Map{"folktale_id": folktale.ID.String()}).Logs("Folktale updated")

	return c.JSON(folktale)
}

// DeleteFolktale removes the record only. Comments and bookmarks referencing
// it remain behind.
func DeleteFolktale(c *fiber.Ctx) error {
	id, err := parseFolktaleID(c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	if err := models.DeleteFolktale(c.Context(), Redis, DB, id); err != nil {
		return utils.SendError(c, err)
	}

	Logger.Info(c.Context()).WithMeta(utils.Map{"folktale_id": id.String()}).Logs("Folktale deleted")

	return c.JSON(fiber.Map{
		"message": "Folktale deleted",
	})
}

// RateFolktale records the caller's 1-5 rating; one rating per user.
func RateFolktale(c *fiber.Ctx) error {
	id, err := parseFolktaleID(c.Params("id"))
	if err != nil {
		return utils.SendError(c, err)
	}

	userID, err := currentUserID(c)
	if err != nil {
		return utils.SendError(c, err)
	}

	type RateInput struct {
		Rating int `json:"rating" validate:"required,gte=1,lte=5"`
	}
	ri := new(RateInput)
	if err := utils.StrictBodyParser(c, ri); err != nil {
		return utils.SendError(c, utils.NewError(utils.ErrBadRequest.Code, "Invalid request format"))
	}
	if errs := Validator.Validate(ri); errs != nil {
		return utils.SendValidationErrors(c, errs)
	}

	folktale, err := models.RateFolktale(c.Context(), Redis, DB, id, userID, ri.Rating)
	if err != nil {
		return utils.SendError(c, err)
	}

	return c.JSON(folktale)
}

func saveImage(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	url, err := Media.SaveImage(c.Context(), fh)
	if err != nil {
		Logger.Warn(c.Context()).WithFields("error", err).Logs("Image ingestion failed")
		return "", err
	}
	return url, nil
}
