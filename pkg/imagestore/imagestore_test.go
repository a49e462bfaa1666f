package imagestore_test

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"testing"

	"taskpool/internal/apperrors"
	"taskpool/pkg/imagestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDetectImageType(t *testing.T) {
	ext, err := imagestore.DetectImageType(pngBytes(t))
	assert.NoError(t, err)
	assert.Equal(t, "png", ext)

	ext, err = imagestore.DetectImageType([]byte("GIF89a..."))
	assert.NoError(t, err)
	assert.Equal(t, "gif", ext)

	_, err = imagestore.DetectImageType([]byte("definitely not an image"))
	assert.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", imagestore.ContentType("jpg"))
	assert.Equal(t, "image/jpeg", imagestore.ContentType("jpeg"))
	assert.Equal(t, "image/png", imagestore.ContentType("png"))
	assert.Equal(t, "image/bmp", imagestore.ContentType("bmp"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := imagestore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	data := pngBytes(t)
	require.NoError(t, store.Save("task-1", "png", data))

	blob, err := store.Open("task-1", "png")
	require.NoError(t, err)
	got, err := io.ReadAll(blob)
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	assert.Equal(t, data, got)

	require.NoError(t, store.Remove("task-1", "png"))

	_, err = store.Open("task-1", "png")
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestFileStoreRemoveAbsentBlobIsNotAnError(t *testing.T) {
	store, err := imagestore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Remove("never-existed", "png"))
}
