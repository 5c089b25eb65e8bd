package cover

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

type Image struct {
	FilePath string
	Width    int
	Height   int
}

func cacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve cache dir: %w", err)
	}

	return filepath.Join(cacheDir, "bookbinder", "thumbnails"), nil
}

// Thumbnail URLs share one path and differ only in their query, so the whole
// URL is hashed.
func cacheKey(thumbnailURL string) (string, error) {
	trimmed := strings.TrimSpace(thumbnailURL)
	if trimmed == "" {
		return "", fmt.Errorf("thumbnail url missing")
	}

	sum := sha1.Sum([]byte(trimmed))
	return hex.EncodeToString(sum[:]), nil
}

func cachePath(thumbnailURL string) (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}

	key, err := cacheKey(thumbnailURL)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, key+".png"), nil
}

func LoadCached(thumbnailURL string) (Image, bool, error) {
	path, err := cachePath(thumbnailURL)
	if err != nil {
		return Image{}, false, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Image{}, false, nil
		}
		return Image{}, false, err
	}
	defer file.Close()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		_ = os.Remove(path)
		return Image{}, false, nil
	}

	return Image{FilePath: path, Width: config.Width, Height: config.Height}, true, nil
}

func Save(thumbnailURL string, data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("empty image data")
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("unable to decode thumbnail: %w", err)
	}

	path, err := cachePath(thumbnailURL)
	if err != nil {
		return Image{}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Image{}, fmt.Errorf("unable to create thumbnail cache: %w", err)
	}

	if err := writePNG(path, decoded); err != nil {
		return Image{}, err
	}

	bounds := decoded.Bounds()
	return Image{FilePath: path, Width: bounds.Dx(), Height: bounds.Dy()}, nil
}

func ClearCache() error {
	dir, err := cacheDir()
	if err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("unable to clear thumbnail cache: %w", err)
	}

	return nil
}

func writePNG(path string, source image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create thumbnail file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, source); err != nil {
		return fmt.Errorf("unable to encode thumbnail png: %w", err)
	}

	return nil
}

// RenderKittyImageFromFile returns the kitty graphics escape that draws
// filePath into a cols x rows cell box.
func RenderKittyImageFromFile(filePath string, cols, rows int) (string, error) {
	if strings.TrimSpace(filePath) == "" {
		return "", fmt.Errorf("thumbnail file path missing")
	}
	if cols <= 0 {
		cols = 20
	}
	if rows <= 0 {
		rows = 10
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(filePath))
	params := fmt.Sprintf("a=T,f=100,t=f,c=%d,r=%d,q=2,C=1,z=1", cols, rows)
	return fmt.Sprintf("\x1b_G%s;%s\x1b\\", params, encoded), nil
}

// SupportsGraphics reports whether term advertises the kitty graphics protocol.
func SupportsGraphics(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(term, "ghostty") || strings.Contains(term, "kitty")
}
