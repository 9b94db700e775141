package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
)

// JPEGQuality is used when writing .jpg/.jpeg outputs.
const JPEGQuality = 95

// Save writes img to path, choosing the encoder from the file extension.
// The parent directory is created if missing.
func Save(path string, img image.Image) error {
	var enc imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		enc = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(JPEGQuality)
	case ".bmp":
		enc = imgio.BMPEncoder()
	default:
		return fmt.Errorf("unsupported output format: %s", filepath.Ext(path))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}
