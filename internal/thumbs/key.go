package thumbs

import (
	"crypto/md5" //nolint:gosec // cache identity, not security
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Fit names a policy for mapping a source aspect ratio into a target box.
type Fit string

const (
	// FitCover fills the target box and crops the excess.
	FitCover Fit = "cover"
	// FitContain fits within the box and pads to the exact size.
	FitContain Fit = "contain"
	// FitFill stretches to the exact size, ignoring aspect ratio.
	FitFill Fit = "fill"
	// FitInside resizes to be as large as possible while keeping both
	// dimensions at or below the target.
	FitInside Fit = "inside"
	// FitOutside resizes to be as small as possible while keeping both
	// dimensions at or above the target.
	FitOutside Fit = "outside"
)

// ParseFit validates a resize fit name.
func ParseFit(s string) (Fit, error) {
	switch Fit(s) {
	case FitCover, FitContain, FitFill, FitInside, FitOutside:
		return Fit(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFit, s)
}

// ContentKey is the identity of a cached thumbnail: the md5 of the source
// file's bytes plus the requested output shape. Two paths with identical
// bytes share a key; renaming a file does not change it.
type ContentKey struct {
	Hash   string
	Width  int
	Height int
	Fit    Fit
}

// Filename returns the deterministic cache entry name for the key.
func (k ContentKey) Filename() string {
	return fmt.Sprintf("%s_%dx%d-%s", k.Hash, k.Width, k.Height, k.Fit)
}

// fullEntryName names the full-resolution intermediate cache entry shared by
// all sizes of one RAW or HEIC source.
func fullEntryName(hash string) string {
	return hash + "_fullxfull-none"
}

// ContentHash streams the file through md5 and returns the hex digest.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SourceKind is the decode strategy for a source file, resolved once from
// its extension.
type SourceKind int

const (
	// KindUnsupported marks formats the pipeline cannot decode.
	KindUnsupported SourceKind = iota
	// KindRaster is a directly decodable compressed image.
	KindRaster
	// KindRaw is a camera RAW file needing the external decode tool.
	KindRaw
	// KindHeic is an HEIC/HEIF container needing conversion.
	KindHeic
)

var rasterExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".avif": true, ".tiff": true, ".tif": true, ".gif": true, ".svg": true,
}

var heicExts = map[string]bool{
	".heic": true, ".heif": true,
}

var rawExt = regexp.MustCompile(`^\.(cr[0-9]|dng)$`)

// KindOf resolves the source kind from the file extension.
func KindOf(filename string) SourceKind {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case rasterExts[ext]:
		return KindRaster
	case rawExt.MatchString(ext):
		return KindRaw
	case heicExts[ext]:
		return KindHeic
	}
	return KindUnsupported
}

// IsSupported reports whether the pipeline can generate a thumbnail for the
// given filename.
func IsSupported(filename string) bool {
	return KindOf(filename) != KindUnsupported
}
