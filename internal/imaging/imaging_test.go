package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gemimg/gemimg/pkg/models"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	if got := Sniff(testPNG(t)); got != models.MIMEPNG {
		t.Errorf("Sniff(png) = %q, want %q", got, models.MIMEPNG)
	}
	if got := Sniff(testJPEG(t)); got != models.MIMEJPEG {
		t.Errorf("Sniff(jpeg) = %q, want %q", got, models.MIMEJPEG)
	}
}

func TestDecode(t *testing.T) {
	if _, format, err := Decode(testPNG(t)); err != nil || format != "png" {
		t.Errorf("Decode(png) format = %q, err = %v", format, err)
	}
	if _, format, err := Decode(testJPEG(t)); err != nil || format != "jpeg" {
		t.Errorf("Decode(jpeg) format = %q, err = %v", format, err)
	}
	if _, _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Decode(garbage) expected error")
	}
}

// A decoded image re-encoded to PNG for download and decoded again
// must be pixel-identical to the original.
func TestPNGRoundTrip(t *testing.T) {
	original := testPNG(t)

	first, _, err := Decode(original)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	reencoded, err := ToPNG(original)
	if err != nil {
		t.Fatalf("ToPNG() error = %v", err)
	}

	second, _, err := Decode(reencoded)
	if err != nil {
		t.Fatalf("Decode(reencoded) error = %v", err)
	}

	bounds := first.Bounds()
	if bounds != second.Bounds() {
		t.Fatalf("bounds changed: %v -> %v", bounds, second.Bounds())
	}
	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			r1, g1, b1, a1 := first.At(x, y).RGBA()
			r2, g2, b2, a2 := second.At(x, y).RGBA()
			if r1 != r2 || g1 != g2 || b1 != b2 || a1 != a2 {
				t.Fatalf("pixel (%d,%d) changed after round trip", x, y)
			}
		}
	}
}

func TestLoadSource(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "in.png")
	if err := os.WriteFile(pngPath, testPNG(t), 0644); err != nil {
		t.Fatal(err)
	}
	src, err := LoadSource(pngPath)
	if err != nil {
		t.Fatalf("LoadSource(png) error = %v", err)
	}
	if src.MIMEType != models.MIMEPNG {
		t.Errorf("MIMEType = %q, want %q", src.MIMEType, models.MIMEPNG)
	}

	txtPath := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(txtPath, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSource(txtPath); !errors.Is(err, models.ErrUnsupportedImageType) {
		t.Errorf("LoadSource(txt) error = %v, want ErrUnsupportedImageType", err)
	}

	if _, err := LoadSource(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("LoadSource(missing) expected error")
	}
}

func TestSaverSave(t *testing.T) {
	dir := t.TempDir()
	saver := NewSaver()

	jpegData := testJPEG(t)
	path := filepath.Join(dir, "out", GeneratedFilename)
	img := &models.ResultImage{Data: jpegData, MIMEType: models.MIMEJPEG}

	if err := saver.Save(img, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	// Downloads are always PNG regardless of the source encoding.
	if got := Sniff(written); got != models.MIMEPNG {
		t.Errorf("saved file MIME = %q, want %q", got, models.MIMEPNG)
	}

	if err := saver.Save(nil, filepath.Join(dir, "never.png")); err == nil {
		t.Error("Save(nil) expected error")
	}
}

func TestDefaultFilename(t *testing.T) {
	if got := DefaultFilename("generate"); got != GeneratedFilename {
		t.Errorf("DefaultFilename(generate) = %q", got)
	}
	if got := DefaultFilename("modify"); got != ModifiedFilename {
		t.Errorf("DefaultFilename(modify) = %q", got)
	}
}
