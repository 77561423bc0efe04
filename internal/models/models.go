package models

import (
	folktale "github.com/folktalehaven/server/internal/models/folktale"
	user "github.com/folktalehaven/server/internal/models/user"
)

// RegisterModels lists everything AutoMigrate manages.
func RegisterModels() []interface{} {
	return []interface{}{
		&user.User{},
		&folktale.Folktale{},
		&folktale.Rating{},
		&folktale.Comment{},
		&folktale.Bookmark{},
	}
}

type (
	User           = user.User
	Folktale       = folktale.Folktale
	Rating         = folktale.Rating
	Comment        = folktale.Comment
	Bookmark       = folktale.Bookmark
	FolktaleFilter = folktale.FolktaleFilter
)

var (
	NewUser     = user.NewUser
	GetUserBy   = user.GetUserBy
	GetUserByID = user.GetUserByID
	SeedAdmin   = user.SeedAdmin
	WithIsAdmin = user.WithIsAdmin

	CreateFolktale   = folktale.CreateFolktale
	GetFolktaleBy    = folktale.GetFolktaleBy
	GetFolktales     = folktale.GetFolktales
	PopularFolktales = folktale.PopularFolktales
	RandomFolktale   = folktale.RandomFolktale
	IncrementViews   = folktale.IncrementViews
	UpdateFolktale   = folktale.UpdateFolktale
	DeleteFolktale   = folktale.DeleteFolktale
	RateFolktale     = folktale.RateFolktale

	AddComment  = folktale.AddComment
	CommentsFor = folktale.CommentsFor

	AddBookmark    = folktale.AddBookmark
	BookmarksFor   = folktale.BookmarksFor
	RemoveBookmark = folktale.RemoveBookmark

	WithTitle    = folktale.WithTitle
	WithContent  = folktale.WithContent
	WithRegion   = folktale.WithRegion
	WithGenre    = folktale.WithGenre
	WithAgeGroup = folktale.WithAgeGroup
	WithImageURL = folktale.WithImageURL
)
