package models

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	user "github.com/folktalehaven/server/internal/models/user"
	storage "github.com/folktalehaven/server/pkg/redis"
	"github.com/folktalehaven/server/pkg/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) (*storage.RedisClient, *gorm.DB) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := &storage.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &Folktale{}, &Rating{}, &Comment{}, &Bookmark{}))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return rc, db
}

func newTestUser(t *testing.T, rc *storage.RedisClient, db *gorm.DB, username string) *user.User {
	t.Helper()
	u, err := user.NewUser(context.Background(), rc, db, username, username+"@example.com", "hashed-password")
	require.NoError(t, err)
	return u
}

func newTestFolktale(t *testing.T, rc *storage.RedisClient, db *gorm.DB, title string) *Folktale {
	t.Helper()
	f := &Folktale{
		Title:    title,
		Content:  "Once upon a time in " + title,
		Region:   "West Africa",
		Genre:    "Trickster",
		AgeGroup: "Kids",
		ImageURL: "http://localhost:8080/media/folktales/test.png",
	}
	require.NoError(t, CreateFolktale(context.Background(), rc, db, f))
	return f
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var appErr *utils.CustomError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateFolktale(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	f := &Folktale{
		Title:    "Anansi and the Sky God",
		Content:  "Once upon a time...",
		Region:   "West Africa",
		Genre:    "Trickster",
		AgeGroup: "Kids",
		ImageURL: "http://localhost:8080/media/folktales/anansi.png",
	}
	require.NoError(t, CreateFolktale(ctx, rc, db, f))

	assert.NotEqual(t, uuid.Nil, f.ID)
	assert.True(t, strings.HasPrefix(f.Slug, "anansi-and-the-sky-god-"), "slug %q", f.Slug)
	assert.Equal(t, int64(0), f.Views)

	fetched, err := GetFolktaleBy(ctx, rc, db, "id = ?", []interface{}{f.ID})
	require.NoError(t, err)
	assert.Equal(t, f.Title, fetched.Title)
}

func TestCreateFolktaleMissingFields(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	err := CreateFolktale(ctx, rc, db, &Folktale{Title: "Untitled", ImageURL: "http://x/y.png"})
	requireCode(t, err, utils.ErrBadRequest.Code)

	err = CreateFolktale(ctx, rc, db, &Folktale{
		Title:    "No Image",
		Content:  "text",
		Region:   "Asia",
		Genre:    "Legend",
		AgeGroup: "Teens",
	})
	requireCode(t, err, utils.ErrBadRequest.Code)
}

func TestGetFolktalesFiltersAndPagination(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		newTestFolktale(t, rc, db, fmt.Sprintf("Anansi Tale %d", i))
	}
	other := &Folktale{
		Title:    "The Snow Maiden",
		Content:  "A tale of winter",
		Region:   "Eastern Europe",
		Genre:    "Fairy Tale",
		AgeGroup: "Teens",
		ImageURL: "http://localhost:8080/media/folktales/snow.png",
	}
	require.NoError(t, CreateFolktale(ctx, rc, db, other))

	all, total, err := GetFolktales(ctx, rc, db, 1, 10, FolktaleFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	page, total, err := GetFolktales(ctx, rc, db, 2, 3, FolktaleFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, page, 1)

	byRegion, total, err := GetFolktales(ctx, rc, db, 1, 10, FolktaleFilter{Region: "Eastern Europe"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, byRegion, 1)
	assert.Equal(t, "The Snow Maiden", byRegion[0].Title)

	byAge, total, err := GetFolktales(ctx, rc, db, 1, 10, FolktaleFilter{AgeGroup: "Kids"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, byAge, 3)

	// Search is case-insensitive substring match on the title.
	found, total, err := GetFolktales(ctx, rc, db, 1, 10, FolktaleFilter{Search: "snow"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
	assert.Equal(t, "The Snow Maiden", found[0].Title)
}

func TestIncrementViews(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	f := newTestFolktale(t, rc, db, "Counting Tale")
	for i := 0; i < 3; i++ {
		require.NoError(t, IncrementViews(ctx, db, f.ID))
	}

	fetched, err := GetFolktaleBy(ctx, rc, db, "id = ?", []interface{}{f.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), fetched.Views)

	err = IncrementViews(ctx, db, uuid.New())
	requireCode(t, err, utils.ErrNotFound.Code)
}

func TestPopularFolktales(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		f := newTestFolktale(t, rc, db, fmt.Sprintf("Tale %d", i))
		for v := 0; v < i; v++ {
			require.NoError(t, IncrementViews(ctx, db, f.ID))
		}
	}

	popular, err := PopularFolktales(ctx, rc, db)
	require.NoError(t, err)
	require.Len(t, popular, 5)
	assert.Equal(t, "Tale 6", popular[0].Title)
	assert.Equal(t, "Tale 2", popular[4].Title)
	for i := 1; i < len(popular); i++ {
		assert.GreaterOrEqual(t, popular[i-1].Views, popular[i].Views)
	}

	// Second call within the TTL is served from the cache and does not see
	// newer view counts.
	require.NoError(t, IncrementViews(ctx, db, popular[4].ID))
	cached, err := PopularFolktales(ctx, rc, db)
	require.NoError(t, err)
	assert.Equal(t, popular[4].Views, cached[4].Views)
}

func TestRandomFolktale(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	_, err := RandomFolktale(ctx, rc, db)
	requireCode(t, err, utils.ErrNotFound.Code)

	f := newTestFolktale(t, rc, db, "Only Tale")
	got, err := RandomFolktale(ctx, rc, db)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
}

func TestUpdateFolktale(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	f := newTestFolktale(t, rc, db, "Old Title")
	originalImage := f.ImageURL

	updated, err := UpdateFolktale(ctx, rc, db, f.ID,
		WithTitle("New Title"),
		WithContent("Rewritten content"),
		WithRegion("East Asia"),
		WithGenre("Legend"),
		WithAgeGroup("Adults"),
		WithImageURL(""),
	)
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, "East Asia", updated.Region)
	assert.True(t, strings.HasPrefix(updated.Slug, "new-title-"), "slug %q", updated.Slug)
	// Empty image url means keep the existing image.
	assert.Equal(t, originalImage, updated.ImageURL)

	_, err = UpdateFolktale(ctx, rc, db, uuid.New(), WithTitle("x"))
	requireCode(t, err, utils.ErrNotFound.Code)
}

func TestUpdateFolktalePreservesConcurrentViews(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	f := newTestFolktale(t, rc, db, "Busy Tale")

	// Land a view increment between the update's read and its write, the way
	// a concurrent detail fetch would. The update must not roll it back.
	bumped := false
	err := db.Callback().Query().After("gorm:query").Register("bump_views_once", func(tx *gorm.DB) {
		if bumped {
			return
		}
		bumped = true
		db.Session(&gorm.Session{NewDB: true}).Model(&Folktale{}).
			Where("id = ?", f.ID).UpdateColumn("views", gorm.Expr("views + 1"))
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Callback().Query().Remove("bump_views_once") })

	updated, err := UpdateFolktale(ctx, rc, db, f.ID, WithTitle("Busy Tale Renamed"))
	require.NoError(t, err)
	assert.Equal(t, "Busy Tale Renamed", updated.Title)

	fetched, err := GetFolktaleBy(ctx, rc, db, "id = ?", []interface{}{f.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetched.Views)
}

func TestDeleteFolktaleLeavesOrphans(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, rc, db, "orphanuser")
	f := newTestFolktale(t, rc, db, "Doomed Tale")

	_, err := AddComment(ctx, rc, db, f.ID, u.ID, "great story")
	require.NoError(t, err)
	_, err = AddBookmark(ctx, rc, db, u.ID, f.ID)
	require.NoError(t, err)

	require.NoError(t, DeleteFolktale(ctx, rc, db, f.ID))

	_, err = GetFolktaleBy(ctx, rc, db, "id = ?", []interface{}{f.ID})
	requireCode(t, err, utils.ErrNotFound.Code)

	// Comments and bookmarks survive the folktale's deletion.
	var commentCount, bookmarkCount int64
	require.NoError(t, db.Model(&Comment{}).Where("folktale_id = ?", f.ID).Count(&commentCount).Error)
	require.NoError(t, db.Model(&Bookmark{}).Where("folktale_id = ?", f.ID).Count(&bookmarkCount).Error)
	assert.Equal(t, int64(1), commentCount)
	assert.Equal(t, int64(1), bookmarkCount)

	err = DeleteFolktale(ctx, rc, db, f.ID)
	requireCode(t, err, utils.ErrNotFound.Code)
}

func TestRateFolktale(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, rc, db, "rater")
	f := newTestFolktale(t, rc, db, "Rated Tale")

	_, err := RateFolktale(ctx, rc, db, f.ID, u.ID, 0)
	requireCode(t, err, utils.ErrBadRequest.Code)
	_, err = RateFolktale(ctx, rc, db, f.ID, u.ID, 6)
	requireCode(t, err, utils.ErrBadRequest.Code)

	_, err = RateFolktale(ctx, rc, db, uuid.New(), u.ID, 4)
	requireCode(t, err, utils.ErrNotFound.Code)

	rated, err := RateFolktale(ctx, rc, db, f.ID, u.ID, 4)
	require.NoError(t, err)
	require.Len(t, rated.Ratings, 1)
	assert.Equal(t, 4, rated.Ratings[0].Rating)
	assert.Equal(t, u.ID, rated.Ratings[0].UserID)

	_, err = RateFolktale(ctx, rc, db, f.ID, u.ID, 5)
	requireCode(t, err, utils.ErrConflict.Code)

	// A different user may still rate.
	other := newTestUser(t, rc, db, "otherrater")
	rated, err = RateFolktale(ctx, rc, db, f.ID, other.ID, 2)
	require.NoError(t, err)
	assert.Len(t, rated.Ratings, 2)
}

func TestAddComment(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, rc, db, "commenter")
	f := newTestFolktale(t, rc, db, "Commented Tale")

	_, err := AddComment(ctx, rc, db, f.ID, u.ID, "   ")
	requireCode(t, err, utils.ErrBadRequest.Code)

	_, err = AddComment(ctx, rc, db, uuid.New(), u.ID, "hello")
	requireCode(t, err, utils.ErrNotFound.Code)

	comment, err := AddComment(ctx, rc, db, f.ID, u.ID, "  loved it  ")
	require.NoError(t, err)
	assert.Equal(t, "loved it", comment.Content)
	assert.Equal(t, "commenter", comment.User.Username)

	_, err = AddComment(ctx, rc, db, f.ID, u.ID, "again")
	requireCode(t, err, utils.ErrConflict.Code)

	comments, err := CommentsFor(ctx, rc, db, f.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "commenter", comments[0].User.Username)
}

func TestBookmarks(t *testing.T) {
	rc, db := newTestStore(t)
	ctx := context.Background()

	u := newTestUser(t, rc, db, "collector")
	f := newTestFolktale(t, rc, db, "Saved Tale")

	_, err := AddBookmark(ctx, rc, db, u.ID, uuid.New())
	requireCode(t, err, utils.ErrNotFound.Code)

	bookmark, err := AddBookmark(ctx, rc, db, u.ID, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, bookmark.FolktaleID)
	assert.Equal(t, "Saved Tale", bookmark.Folktale.Title)

	_, err = AddBookmark(ctx, rc, db, u.ID, f.ID)
	requireCode(t, err, utils.ErrConflict.Code)

	list, err := BookmarksFor(ctx, rc, db, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Saved Tale", list[0].Folktale.Title)

	require.NoError(t, RemoveBookmark(ctx, rc, db, u.ID, f.ID))

	err = RemoveBookmark(ctx, rc, db, u.ID, f.ID)
	requireCode(t, err, utils.ErrNotFound.Code)

	list, err = BookmarksFor(ctx, rc, db, u.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
