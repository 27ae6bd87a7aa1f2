package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // source images and inline data may be JPEG
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"slices"

	"github.com/gemimg/gemimg/pkg/models"
)

// Default download names, by the operation that produced the image.
const (
	GeneratedFilename = "gemini-generated-image.png"
	ModifiedFilename  = "gemini-modified-image.png"
)

// Sniff returns the detected MIME type of raw image bytes.
func Sniff(data []byte) string {
	return http.DetectContentType(data)
}

// Decode parses raw bytes into an image, rejecting anything that is
// not a usable raster image.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// EncodePNG renders an image as PNG bytes. PNG is lossless, so a
// decode/encode/decode cycle preserves every pixel.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// ToPNG re-encodes arbitrary image bytes as PNG for download.
func ToPNG(data []byte) ([]byte, error) {
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// LoadSource reads an upload from disk and gates it to the accepted
// types (PNG and JPEG).
func LoadSource(path string) (*models.SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := Sniff(data)
	if !slices.Contains(models.AcceptedMIMETypes(), mimeType) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedImageType, mimeType)
	}

	return &models.SourceImage{Data: data, MIMEType: mimeType}, nil
}

// Saver writes result images to disk as PNG downloads.
type Saver struct{}

func NewSaver() *Saver {
	return &Saver{}
}

// Save converts the result image to PNG and writes it to path.
func (s *Saver) Save(img *models.ResultImage, path string) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("no image data available")
	}

	data, err := ToPNG(img.Data)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// DefaultFilename maps an operation to its download name.
func DefaultFilename(operation string) string {
	if operation == "modify" {
		return ModifiedFilename
	}
	return GeneratedFilename
}
