package thumbs

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"

	"homedrive/internal/logging"

	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 80

// Encoder resizes a decoded raster to the requested shape and writes the
// JPEG result through the cache store's atomic path.
type Encoder struct {
	store *Store
}

// NewEncoder creates an Encoder writing into store.
func NewEncoder(store *Store) *Encoder {
	return &Encoder{store: store}
}

// Encode produces the cache entry for key from the raster at rasterPath and
// returns the entry path.
func (e *Encoder) Encode(rasterPath string, key ContentKey) (string, error) {
	img, err := openRaster(rasterPath)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", rasterPath, err)
	}

	thumb := resizeToFit(img, key.Width, key.Height, key.Fit)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	path, err := e.store.Write(key.Filename(), &buf)
	if err != nil {
		return "", err
	}
	logging.Debug("Thumbnail cached: %s", path)
	return path, nil
}

// openRaster decodes an image file, trying imaging first (EXIF orientation
// handling) and the registered stdlib decoders as a fallback.
func openRaster(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	logging.Debug("imaging.Open failed for %s: %v, trying stdlib decode", path, err)

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	defer f.Close()

	img, format, decErr := image.Decode(f)
	if decErr != nil {
		return nil, fmt.Errorf("all decode methods failed: %w", err)
	}
	logging.Debug("Decoded image format: %s for %s", format, path)
	return img, nil
}

// resizeToFit applies one of the five fit strategies.
func resizeToFit(img image.Image, width, height int, fit Fit) image.Image {
	switch fit {
	case FitCover:
		covered := resizeCovering(img, width, height)
		return entropyCrop(covered, width, height)
	case FitContain:
		fitted := imaging.Fit(img, width, height, imaging.Lanczos)
		canvas := imaging.New(width, height, color.Black)
		return imaging.PasteCenter(canvas, fitted)
	case FitFill:
		return imaging.Resize(img, width, height, imaging.Lanczos)
	case FitInside:
		return imaging.Fit(img, width, height, imaging.Lanczos)
	case FitOutside:
		return resizeCovering(img, width, height)
	}
	// ParseFit rejects anything else before we get here.
	return imaging.Fit(img, width, height, imaging.Lanczos)
}

// resizeCovering resizes preserving aspect ratio so both dimensions are at
// least the target size.
func resizeCovering(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return img
	}

	scaleW := float64(width) / float64(srcW)
	scaleH := float64(height) / float64(srcH)
	if scaleW > scaleH {
		return imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, height, imaging.Lanczos)
}

// entropyCrop crops img to width x height, sliding the crop window along the
// axis with excess and anchoring it where the grayscale histogram entropy is
// highest. This keeps the most detailed part of the picture instead of a
// blind center crop.
func entropyCrop(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW <= width && srcH <= height {
		return img
	}

	excessX := srcW - width
	excessY := srcH - height

	bestX, bestY := excessX/2, excessY/2
	bestEntropy := -1.0

	// 16 candidate positions along the sliding axis is plenty for a crop
	// anchor; entropy varies smoothly.
	const steps = 16
	for i := 0; i <= steps; i++ {
		x, y := bestXYForStep(i, steps, excessX, excessY)
		rect := image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+width, b.Min.Y+y+height)
		ent := regionEntropy(img, rect)
		if ent > bestEntropy {
			bestEntropy = ent
			bestX, bestY = x, y
		}
	}

	return imaging.Crop(img, image.Rect(b.Min.X+bestX, b.Min.Y+bestY,
		b.Min.X+bestX+width, b.Min.Y+bestY+height))
}

func bestXYForStep(i, steps, excessX, excessY int) (int, int) {
	if excessX >= excessY {
		return excessX * i / steps, excessY / 2
	}
	return excessX / 2, excessY * i / steps
}

// regionEntropy computes the Shannon entropy of the grayscale histogram over
// rect, sampling every few pixels to keep the scan cheap.
func regionEntropy(img image.Image, rect image.Rectangle) float64 {
	var hist [256]int
	total := 0

	const stride = 4
	for y := rect.Min.Y; y < rect.Max.Y; y += stride {
		for x := rect.Min.X; x < rect.Max.X; x += stride {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			hist[g.Y]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, n := range hist {
		if n == 0 {
			continue
		}
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}
