package thumbs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"

	"homedrive/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

// Decoder turns a source file into a raster file the encoder can read.
//
// Standard raster formats pass through untouched. Camera RAW files go
// through the external dcraw tool; HEIC files through libvips. Both write a
// full-resolution intermediate into the cache under the source's content
// hash, so requesting a second size of the same source never re-invokes the
// expensive decode.
type Decoder struct {
	store     *Store
	dcrawPath string
}

// NewDecoder creates a Decoder writing intermediates into store.
func NewDecoder(store *Store, dcrawPath string) *Decoder {
	return &Decoder{store: store, dcrawPath: dcrawPath}
}

// Decode returns the path of a raster file for the source, producing the
// full-resolution intermediate if needed.
func (d *Decoder) Decode(srcPath, hash string) (string, error) {
	switch KindOf(srcPath) {
	case KindRaster:
		return srcPath, nil
	case KindRaw:
		return d.decodeRaw(srcPath, hash)
	case KindHeic:
		return d.decodeHeic(srcPath, hash)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, srcPath)
}

// decodeRaw runs the external dcraw tool and streams its stdout into the
// full-resolution intermediate cache entry.
func (d *Decoder) decodeRaw(srcPath, hash string) (string, error) {
	fullName := fullEntryName(hash)
	if path, ok := d.store.LookupName(fullName); ok {
		logging.Debug("RAW intermediate cache hit: %s", path)
		return path, nil
	}

	toolPath, err := exec.LookPath(d.dcrawPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolUnavailable, d.dcrawPath, err)
	}

	// Half-size TIFF output to stdout, camera white balance, sRGB.
	cmd := exec.Command(toolPath, "-T", "+M", "-o", "2", "-h", "-Z", "-", srcPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrToolUnavailable, toolPath, err)
	}

	tmp, err := d.store.Create()
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return "", err
	}

	_, copyErr := io.Copy(tmp, stdout)
	closeErr := tmp.Close()
	waitErr := cmd.Wait()

	if waitErr != nil {
		d.store.Discard(tmp.Name())
		return "", &ToolError{Tool: toolPath, Stderr: stderr.String(), Err: waitErr}
	}
	if copyErr != nil {
		d.store.Discard(tmp.Name())
		return "", fmt.Errorf("failed to capture %s output: %w", toolPath, copyErr)
	}
	if closeErr != nil {
		d.store.Discard(tmp.Name())
		return "", fmt.Errorf("failed to write RAW intermediate: %w", closeErr)
	}

	path, err := d.store.Commit(tmp.Name(), fullName)
	if err != nil {
		return "", err
	}
	logging.Debug("RAW intermediate generated: %s", path)
	return path, nil
}

// decodeHeic converts an HEIC file to JPEG via libvips and stores it as the
// full-resolution intermediate cache entry.
func (d *Decoder) decodeHeic(srcPath, hash string) (string, error) {
	fullName := fullEntryName(hash)
	if path, ok := d.store.LookupName(fullName); ok {
		logging.Debug("HEIC intermediate cache hit: %s", path)
		return path, nil
	}

	buf, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to read HEIC file %s: %w", srcPath, err)
	}

	ref, err := vips.NewImageFromBuffer(buf)
	if err != nil {
		return "", fmt.Errorf("failed to decode HEIC file %s: %w", srcPath, err)
	}
	defer ref.Close()

	jpegBytes, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        80,
		OptimizeCoding: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to convert HEIC file %s: %w", srcPath, err)
	}

	path, err := d.store.Write(fullName, bytes.NewReader(jpegBytes))
	if err != nil {
		return "", err
	}
	logging.Debug("HEIC intermediate generated: %s", path)
	return path, nil
}
