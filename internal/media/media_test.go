package media

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/folktalehaven/server/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n" + "fakepixels")

func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["image"]
	require.Len(t, files, 1)
	return files[0]
}

func entriesIn(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestSaveImage(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, "http://localhost:8080/")
	require.NoError(t, err)

	url, err := s.SaveImage(context.Background(), fileHeader(t, "anansi.PNG", pngBytes))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/media/folktales/"), "url %q", url)
	assert.True(t, strings.HasSuffix(url, ".png"), "url %q", url)

	stored := entriesIn(t, filepath.Join(dir, "folktales"))
	require.Len(t, stored, 1)
	data, err := os.ReadFile(filepath.Join(dir, "folktales", stored[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	// The staging area must be empty after a successful ingest.
	assert.Empty(t, entriesIn(t, filepath.Join(dir, "tmp")))
}

func TestSaveImageRejectsBadExtension(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, "http://localhost:8080")
	require.NoError(t, err)

	_, err = s.SaveImage(context.Background(), fileHeader(t, "story.gif", pngBytes))
	var appErr *utils.CustomError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrBadRequest.Code, appErr.Code)

	assert.Empty(t, entriesIn(t, filepath.Join(dir, "folktales")))
	assert.Empty(t, entriesIn(t, filepath.Join(dir, "tmp")))
}

func TestSaveImageRejectsMismatchedContent(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir, "http://localhost:8080")
	require.NoError(t, err)

	// Right extension, wrong bytes: the sniffer catches it and the temp file
	// is cleaned up.
	_, err = s.SaveImage(context.Background(), fileHeader(t, "notimage.png", []byte("just plain text")))
	var appErr *utils.CustomError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrBadRequest.Code, appErr.Code)

	assert.Empty(t, entriesIn(t, filepath.Join(dir, "folktales")))
	assert.Empty(t, entriesIn(t, filepath.Join(dir, "tmp")))
}
