package digistrip

// Image file I/O helpers.

import (
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// defaultJPEGQuality is used when no quality is configured.
const defaultJPEGQuality = 90

// LoadImage reads and decodes the image at path and returns the results of
// image.Decode. All supported source formats are registered as a side effect
// of importing this package.
func LoadImage(path string) (img image.Image, format string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return image.Decode(f)
}

// SaveImage writes the image to path, encoding it as PNG or JPEG depending
// on the file extension of path.
func SaveImage(path string, img image.Image, jpegQuality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	}
	return err
}

// decodeImageConfig opens the file at path and returns the results of
// image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}
