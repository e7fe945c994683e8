package storage

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
)

const (
	ThumbWidth  = 300
	ThumbHeight = 300
)

// Resize scales data to ThumbWidth x ThumbHeight. When the image cannot be
// decoded or encoded the original bytes come back with ok=false.
func Resize(data []byte) (out []byte, ok bool) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, false
	}
	resized := imaging.Resize(img, ThumbWidth, ThumbHeight, imaging.Lanczos)

	f, err := imaging.FormatFromExtension(format)
	if err != nil {
		f = imaging.JPEG
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, f); err != nil {
		return data, false
	}
	return buf.Bytes(), true
}
