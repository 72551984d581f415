package thumbs

import (
	"homedrive/internal/logging"
)

// HashProperty is the property name under which a source file's content hash
// is persisted.
const HashProperty = "md5"

// PropertyStore persists named string properties keyed by file path. The
// database package implements it.
type PropertyStore interface {
	GetProperty(path, name string) (string, error)
	SetProperty(path, name, value string) error
}

// CachedContentHash returns the content hash for path, preferring the
// persisted value so repeat requests never reread the file bytes. On a miss
// it hashes the file and stores the result; a store failure only warns, the
// hash is still returned. props may be nil, which always hashes.
func CachedContentHash(props PropertyStore, path string) (string, error) {
	if props != nil {
		if v, err := props.GetProperty(path, HashProperty); err == nil && len(v) == 32 {
			logging.Debug("Using cached content hash for %s: %s", path, v)
			return v, nil
		}
	}

	hash, err := ContentHash(path)
	if err != nil {
		return "", err
	}

	if props != nil {
		if err := props.SetProperty(path, HashProperty, hash); err != nil {
			logging.Warn("Cannot store content hash for %s: %v", path, err)
		}
	}
	return hash, nil
}
