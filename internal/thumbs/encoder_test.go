package thumbs

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// writeTestImage writes a width x height gradient image so entropy is
// non-uniform across the frame.
func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), uint8((x + y) % 256), 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func decodeEntry(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open entry: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("Entry is not a valid JPEG: %v", err)
	}
	return img
}

func TestEncodeFitDimensions(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.jpg")
	writeTestImage(t, src, 400, 200)

	tests := []struct {
		fit        Fit
		wantW      int
		wantH      int
		exactMatch bool
	}{
		// 400x200 into a 100x100 box.
		{FitCover, 100, 100, true},
		{FitContain, 100, 100, true},
		{FitFill, 100, 100, true},
		{FitInside, 100, 50, true},
		{FitOutside, 200, 100, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.fit), func(t *testing.T) {
			store := NewStore(filepath.Join(tmpDir, "cache-"+string(tt.fit)))
			enc := NewEncoder(store)

			key := ContentKey{Hash: "testhash", Width: 100, Height: 100, Fit: tt.fit}
			path, err := enc.Encode(src, key)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			img := decodeEntry(t, path)
			b := img.Bounds()
			if tt.exactMatch && (b.Dx() != tt.wantW || b.Dy() != tt.wantH) {
				t.Errorf("Fit %s produced %dx%d, want %dx%d", tt.fit, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestEncodeUpscaleInside(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "small.jpg")
	writeTestImage(t, src, 50, 50)

	store := NewStore(filepath.Join(tmpDir, "cache"))
	enc := NewEncoder(store)

	// inside never exceeds the box but may stay smaller than it.
	key := ContentKey{Hash: "smallhash", Width: 200, Height: 200, Fit: FitInside}
	path, err := enc.Encode(src, key)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	img := decodeEntry(t, path)
	b := img.Bounds()
	if b.Dx() > 200 || b.Dy() > 200 {
		t.Errorf("inside fit exceeded target box: %dx%d", b.Dx(), b.Dy())
	}
}

func TestEncodePNGSource(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "src.png")
	writeTestImage(t, src, 300, 300)

	store := NewStore(filepath.Join(tmpDir, "cache"))
	enc := NewEncoder(store)

	key := ContentKey{Hash: "pnghash", Width: 60, Height: 60, Fit: FitCover}
	path, err := enc.Encode(src, key)
	if err != nil {
		t.Fatalf("Encode of PNG source failed: %v", err)
	}

	// Output is always JPEG regardless of source format.
	img := decodeEntry(t, path)
	if img.Bounds().Dx() != 60 || img.Bounds().Dy() != 60 {
		t.Errorf("Got %dx%d, want 60x60", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestEncodeUnreadableSource(t *testing.T) {
	store := NewStore(t.TempDir())
	enc := NewEncoder(store)

	key := ContentKey{Hash: "nohash", Width: 60, Height: 60, Fit: FitCover}
	if _, err := enc.Encode("/does/not/exist.jpg", key); err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestEntropyCropDimensions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	cropped := entropyCrop(img, 100, 100)
	b := cropped.Bounds()
	if b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("entropyCrop produced %dx%d, want 100x100", b.Dx(), b.Dy())
	}
}

func TestEntropyCropPrefersDetail(t *testing.T) {
	// Left half flat, right half noisy gradient. The crop should anchor on
	// the right.
	img := image.NewRGBA(image.Rect(0, 0, 300, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 300; x++ {
			if x < 150 {
				img.Set(x, y, color.Gray{128})
			} else {
				img.Set(x, y, color.RGBA{uint8(x * 7 % 256), uint8(y * 13 % 256), uint8((x * y) % 256), 255})
			}
		}
	}

	cropped := entropyCrop(img, 100, 100)
	b := cropped.Bounds()
	if b.Min.X < 100 {
		t.Errorf("Crop anchored at x=%d, expected the detailed right half (x >= 100)", b.Min.X)
	}
}

func TestEntropyCropNoExcess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 80, 80))
	cropped := entropyCrop(img, 100, 100)
	if cropped != image.Image(img) {
		b := cropped.Bounds()
		if b.Dx() != 80 || b.Dy() != 80 {
			t.Errorf("Image smaller than target should pass through, got %dx%d", b.Dx(), b.Dy())
		}
	}
}

func TestRegionEntropyUniform(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.Gray{200})
		}
	}

	if ent := regionEntropy(img, img.Bounds()); ent != 0 {
		t.Errorf("Uniform region entropy = %f, want 0", ent)
	}
}
