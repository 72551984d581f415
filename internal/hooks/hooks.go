package hooks

import (
	"homedrive/internal/logging"
	"homedrive/internal/queue"
	"homedrive/internal/thumbs"
)

// PropertyStore persists named string properties on file paths. The database
// package implements it.
type PropertyStore interface {
	thumbs.PropertyStore
	DeleteProperties(path string) error
}

// PregenSize is one eagerly generated thumbnail shape.
type PregenSize struct {
	Width  int
	Height int
}

// DefaultPregenSizes are the shapes generated after every write: the
// gallery tile and the list icon.
var DefaultPregenSizes = []PregenSize{
	{Width: 200, Height: 200},
	{Width: 60, Height: 60},
}

// Hooks wires mutation callbacks into the thumbnail pipeline.
type Hooks struct {
	sched queue.Scheduler
	cache *thumbs.Store
	props PropertyStore
	sizes []PregenSize
}

// New creates the hook set. sizes defaults to DefaultPregenSizes when nil.
func New(sched queue.Scheduler, cache *thumbs.Store, props PropertyStore, sizes []PregenSize) *Hooks {
	if sizes == nil {
		sizes = DefaultPregenSizes
	}
	return &Hooks{sched: sched, cache: cache, props: props, sizes: sizes}
}

// AfterWrite is invoked after a successful file write. It recomputes and
// persists the content hash, superseding any stored value for the old bytes
// so the read-through hash cache never serves a stale entry, and schedules
// eager pre-generation of the default sizes so later requests hit the cache.
func (h *Hooks) AfterWrite(path string) {
	if !thumbs.IsSupported(path) {
		return
	}

	hash, err := thumbs.ContentHash(path)
	if err != nil {
		logging.Warn("Cannot compute content hash for %s: %v", path, err)
		return
	}

	if err := h.props.SetProperty(path, thumbs.HashProperty, hash); err != nil {
		logging.Warn("Cannot store content hash for %s: %v", path, err)
	}

	if h.sched == nil {
		return
	}
	for _, size := range h.sizes {
		req := thumbs.Request{
			FullFilename: path,
			Width:        size.Width,
			Height:       size.Height,
			ResizeFit:    string(thumbs.FitCover),
		}
		h.sched.Submit(queue.Task{ID: req.TaskID(), Request: req})
	}
}

// BeforeDelete is invoked before a file is removed. It deletes every cache
// entry sharing the file's content hash (all sizes and fits) and drops the
// stored properties.
func (h *Hooks) BeforeDelete(path string) {
	if !thumbs.IsSupported(path) {
		return
	}

	hash, err := h.props.GetProperty(path, thumbs.HashProperty)
	if err != nil || len(hash) != 32 {
		// Not cached (or stale); fall back to hashing the bytes while the
		// file is still there.
		hash, err = thumbs.ContentHash(path)
		if err != nil {
			logging.Warn("Cannot compute content hash for deleting thumbs of %s: %v", path, err)
			return
		}
	}

	if h.cache != nil {
		if _, err := h.cache.Invalidate(hash); err != nil {
			logging.Warn("Cannot delete thumbs for %s: %v", path, err)
		}
	}

	if err := h.props.DeleteProperties(path); err != nil {
		logging.Warn("Cannot delete properties of %s: %v", path, err)
	}
}
