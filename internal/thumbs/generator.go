package thumbs

import (
	"fmt"
	"os"

	"homedrive/internal/logging"
)

// Request describes one thumbnail to produce. It is the unit submitted to
// the scheduler and the payload carried on the broker queue.
type Request struct {
	FullFilename string `json:"fullFilename"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ResizeFit    string `json:"resizeFit"`
}

// TaskID returns the deduplication identity for the request: the source path
// plus the output shape, so distinct sizes of one file coalesce separately.
func (r Request) TaskID() string {
	return fmt.Sprintf("%s@%dx%d-%s", r.FullFilename, r.Width, r.Height, r.ResizeFit)
}

// Generator runs the full pipeline: key derivation, cache lookup, lock
// acquisition, decode, encode.
type Generator struct {
	store *Store
	locks *LockCoordinator
	dec   *Decoder
	enc   *Encoder
	props PropertyStore
}

// NewGenerator creates a Generator caching into cacheDir and decoding RAW
// files with the tool at dcrawPath. props backs the content-hash cache and
// may be nil.
func NewGenerator(cacheDir, dcrawPath string, props PropertyStore) *Generator {
	store := NewStore(cacheDir)
	return &Generator{
		store: store,
		locks: NewLockCoordinator(cacheDir),
		dec:   NewDecoder(store, dcrawPath),
		enc:   NewEncoder(store),
		props: props,
	}
}

// Store exposes the underlying cache store (used by the invalidation hook).
func (g *Generator) Store() *Store { return g.store }

// Key validates the request and derives its ContentKey. It distinguishes
// the rejected-immediately error kinds (validation, not found, unsupported)
// from read failures.
func (g *Generator) Key(req Request) (ContentKey, error) {
	fit, err := ParseFit(req.ResizeFit)
	if err != nil {
		return ContentKey{}, err
	}
	if req.Width <= 0 || req.Height <= 0 {
		return ContentKey{}, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFit, req.Width, req.Height)
	}

	if _, err := os.Stat(req.FullFilename); err != nil {
		return ContentKey{}, fmt.Errorf("%w: %s", ErrNotFound, req.FullFilename)
	}
	if !IsSupported(req.FullFilename) {
		return ContentKey{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.FullFilename)
	}

	hash, err := CachedContentHash(g.props, req.FullFilename)
	if err != nil {
		return ContentKey{}, err
	}
	return ContentKey{Hash: hash, Width: req.Width, Height: req.Height, Fit: fit}, nil
}

// CachedPath returns the cache entry for the request if it already exists.
func (g *Generator) CachedPath(req Request) (string, bool, error) {
	key, err := g.Key(req)
	if err != nil {
		return "", false, err
	}
	path, ok := g.store.Lookup(key)
	return path, ok, nil
}

// Generate produces the thumbnail for the request and returns the cache
// entry path. A concurrent generation for the same content hash yields
// ErrLocked; the caller should retry shortly. The lock is always released,
// whether generation succeeds or fails.
func (g *Generator) Generate(req Request) (string, error) {
	key, err := g.Key(req)
	if err != nil {
		return "", err
	}

	if path, ok := g.store.Lookup(key); ok {
		logging.Debug("Thumb already exists: %s", path)
		return path, nil
	}

	acquired, err := g.locks.TryAcquire(key.Hash)
	if err != nil {
		return "", err
	}
	if !acquired {
		return "", fmt.Errorf("%w: %s", ErrLocked, key.Filename())
	}
	defer g.locks.Release(key.Hash)

	// The winner of the lock race may find the entry already written by the
	// previous holder.
	if path, ok := g.store.Lookup(key); ok {
		return path, nil
	}

	logging.Debug("Generating thumb for %s (%dx%d-%s)", req.FullFilename, key.Width, key.Height, key.Fit)

	rasterPath, err := g.dec.Decode(req.FullFilename, key.Hash)
	if err != nil {
		return "", err
	}

	return g.enc.Encode(rasterPath, key)
}
