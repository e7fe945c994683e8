package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0x80, 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestResize(t *testing.T) {
	out, ok := Resize(testPNG(t, 640, 480))
	require.True(t, ok)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, ThumbWidth, cfg.Width)
	assert.Equal(t, ThumbHeight, cfg.Height)
}

func TestResizeKeepsUndecodableInput(t *testing.T) {
	in := []byte("not an image")
	out, ok := Resize(in)
	assert.False(t, ok)
	assert.Equal(t, in, out)
}

func TestObjectName(t *testing.T) {
	tests := map[string]string{
		"photo.PNG":  ".png",
		"photo.jpeg": ".jpeg",
		"anim.gif":   ".gif",
		"notes.txt":  ".jpg",
		"noext":      ".jpg",
	}
	for in, ext := range tests {
		name := objectName(in)
		assert.True(t, strings.HasPrefix(name, "items/"), name)
		assert.True(t, strings.HasSuffix(name, ext), "%s -> %s", in, name)
	}
	assert.NotEqual(t, objectName("a.png"), objectName("a.png"))
}

func TestLocalStoreSave(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root, "http://localhost:8080/media/")
	require.NoError(t, err)

	data := testPNG(t, 4, 4)
	u, err := store.Save(context.Background(), "lamp.png", "image/png", data)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "http://localhost:8080/media/items/"), u)
	assert.True(t, strings.HasSuffix(u, ".png"))

	rel := strings.TrimPrefix(u, "http://localhost:8080/media/")
	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLocalStoreHonorsCancelledContext(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Save(ctx, "x.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadURL(t *testing.T) {
	u := downloadURL("demo.appspot.com", "items/abc.png", "tok")
	assert.Equal(t, "https://firebasestorage.googleapis.com/v0/b/demo.appspot.com/o/items%2Fabc.png?alt=media&token=tok", u)
}
