package quota

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"homedrive/internal/logging"
)

// ScanUsage walks root and returns the total size in bytes of all regular
// files beneath it, using numWorkers parallel stat workers. It is used at
// startup to initialize each user's reserved counter from what is actually
// on disk.
func ScanUsage(root string, numWorkers int) (int64, error) {
	if numWorkers < 1 {
		numWorkers = 1
	}

	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	jobs := make(chan string, 256)
	var total atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				info, err := os.Lstat(path)
				if err != nil {
					logging.Warn("Usage scan: cannot stat %s: %v", path, err)
					continue
				}
				if info.Mode().IsRegular() {
					total.Add(info.Size())
				}
			}
		}()
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Usage scan: %v", err)
			return nil
		}
		if !d.IsDir() {
			jobs <- path
		}
		return nil
	})

	close(jobs)
	wg.Wait()

	return total.Load(), walkErr
}
