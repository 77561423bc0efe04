// Package media ingests uploaded folktale images and serves back durable URLs.
package media

import (
	"context"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/folktalehaven/server/pkg/utils"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const imageSubdir = "folktales"

var allowedExts = []string{".jpg", ".jpeg", ".png"}
var allowedMimes = []string{"image/jpeg", "image/png"}

// Storage writes images into a local media directory that the server exposes
// under /media. The returned URLs are durable as long as the directory is.
type Storage struct {
	dir     string
	baseURL string
}

// NewStorage prepares the media directory tree.
func NewStorage(dir, baseURL string) (*Storage, error) {
	for _, sub := range []string{imageSubdir, "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to create media directory")
		}
	}
	return &Storage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the root of the media tree, for static file serving.
func (s *Storage) Dir() string {
	return s.dir
}

// SaveImage validates the upload (jpeg/jpg/png by extension and by sniffed
// content), stages it through a temp file, and moves it into the media tree
// under a fresh name. The temp file is removed on every path, success or not.
func (s *Storage) SaveImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", utils.WrapError(err, utils.ErrInternalServerError.Code, "image upload canceled")
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !utils.Contains(allowedExts, ext) {
		return "", utils.NewError(utils.ErrBadRequest.Code, "Images only (jpeg, jpg, png)")
	}

	src, err := fh.Open()
	if err != nil {
		return "", utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to read upload")
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Join(s.dir, "tmp"), "upload-*"+ext)
	if err != nil {
		return "", utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to stage upload")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return "", utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to stage upload")
	}
	if err := tmp.Close(); err != nil {
		return "", utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to stage upload")
	}

	mtype, err := mimetype.DetectFile(tmpPath)
	if err != nil {
		return "", utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to inspect upload")
	}
	if !utils.Contains(allowedMimes, mtype.String()) {
		return "", utils.NewError(utils.ErrBadRequest.Code, "Images only (jpeg, jpg, png)")
	}

	name := uuid.New().String() + ext
	dest := filepath.Join(s.dir, imageSubdir, name)
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", utils.WrapError(err, utils.ErrInternalServerError.Code, "Failed to store image")
	}

	return s.baseURL + "/media/" + imageSubdir + "/" + name, nil
}
