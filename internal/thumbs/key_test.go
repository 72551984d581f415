package thumbs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFit(t *testing.T) {
	tests := []struct {
		input   string
		want    Fit
		wantErr bool
	}{
		{"cover", FitCover, false},
		{"contain", FitContain, false},
		{"fill", FitFill, false},
		{"inside", FitInside, false},
		{"outside", FitOutside, false},
		{"", "", true},
		{"Cover", "", true},
		{"stretch", "", true},
		{"cover ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFit(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseFit(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFit(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseFit(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestContentKeyFilename(t *testing.T) {
	key := ContentKey{Hash: "d41d8cd98f00b204e9800998ecf8427e", Width: 200, Height: 100, Fit: FitCover}
	want := "d41d8cd98f00b204e9800998ecf8427e_200x100-cover"
	if got := key.Filename(); got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
}

func TestFullEntryName(t *testing.T) {
	want := "abc123_fullxfull-none"
	if got := fullEntryName("abc123"); got != want {
		t.Errorf("fullEntryName() = %q, want %q", got, want)
	}
}

func TestContentHash(t *testing.T) {
	tmpDir := t.TempDir()

	fileA := filepath.Join(tmpDir, "a.jpg")
	if err := os.WriteFile(fileA, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	hash1, err := ContentHash(fileA)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	if len(hash1) != 32 {
		t.Errorf("Expected 32 hex chars, got %d (%s)", len(hash1), hash1)
	}

	hash2, err := ContentHash(fileA)
	if err != nil {
		t.Fatalf("ContentHash failed on second read: %v", err)
	}
	if hash1 != hash2 {
		t.Errorf("Hash not deterministic: %s vs %s", hash1, hash2)
	}

	// Same bytes under a different name hash identically.
	fileB := filepath.Join(tmpDir, "renamed.jpg")
	if err := os.WriteFile(fileB, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	hashB, err := ContentHash(fileB)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	if hashB != hash1 {
		t.Errorf("Identical bytes produced different hashes: %s vs %s", hashB, hash1)
	}

	// A single changed byte changes the hash.
	fileC := filepath.Join(tmpDir, "c.jpg")
	if err := os.WriteFile(fileC, []byte("hello worle"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	hashC, err := ContentHash(fileC)
	if err != nil {
		t.Fatalf("ContentHash failed: %v", err)
	}
	if hashC == hash1 {
		t.Error("Different bytes produced the same hash")
	}
}

func TestContentHashMissingFile(t *testing.T) {
	if _, err := ContentHash(filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		filename string
		want     SourceKind
	}{
		{"photo.jpg", KindRaster},
		{"photo.JPG", KindRaster},
		{"photo.jpeg", KindRaster},
		{"art.png", KindRaster},
		{"anim.gif", KindRaster},
		{"pic.webp", KindRaster},
		{"pic.avif", KindRaster},
		{"scan.tiff", KindRaster},
		{"scan.tif", KindRaster},
		{"logo.svg", KindRaster},
		{"shot.cr2", KindRaw},
		{"shot.CR3", KindRaw},
		{"shot.dng", KindRaw},
		{"phone.heic", KindHeic},
		{"phone.HEIF", KindHeic},
		{"clip.mp4", KindUnsupported},
		{"doc.pdf", KindUnsupported},
		{"noext", KindUnsupported},
		{"shot.cr", KindUnsupported},
		{"shot.crx", KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := KindOf(tt.filename); got != tt.want {
				t.Errorf("KindOf(%s) = %d, want %d", tt.filename, got, tt.want)
			}
		})
	}
}

func TestIsSupported(t *testing.T) {
	if !IsSupported("a.jpg") {
		t.Error("Expected jpg to be supported")
	}
	if IsSupported("a.txt") {
		t.Error("Expected txt to be unsupported")
	}
}
