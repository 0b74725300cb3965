package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Decoders for every raster format a deck can embed.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Minimum source size; anything smaller is treated as an icon.
const (
	MinSourceWidth  = 200
	MinSourceHeight = 150
)

const jpegQuality = 85

// qualifies reports whether data is a decodable raster at least the minimum
// source size, reading only the header.
func qualifies(data []byte) bool {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return false
	}
	return cfg.Width >= MinSourceWidth && cfg.Height >= MinSourceHeight
}

// CoverCrop decodes data, center-crops it to the target aspect and scales it
// to exactly width×height. The result is JPEG encoded.
func CoverCrop(data []byte, width, height int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("source image is empty")
	}

	crop := centerCrop(b, width, height)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// centerCrop returns the largest rectangle inside b with the aspect of
// width×height, centered.
func centerCrop(b image.Rectangle, width, height int) image.Rectangle {
	srcW, srcH := b.Dx(), b.Dy()
	// Compare srcW/srcH with width/height without floats.
	if srcW*height > srcH*width {
		cropW := srcH * width / height
		x0 := b.Min.X + (srcW-cropW)/2
		return image.Rect(x0, b.Min.Y, x0+cropW, b.Max.Y)
	}
	cropH := srcW * height / width
	y0 := b.Min.Y + (srcH-cropH)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+cropH)
}
