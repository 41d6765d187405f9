package indexer

import (
	"context"
	"runtime"
	"sync"
)

// Worker handles the files of one goroutine. Done is called once the
// worker received its last file.
type Worker interface {
	Handle(path string) error
	Done()
}

// WorkerCount caps n to a sane pool size. n < 1 derives it from the CPUs.
func WorkerCount(n int) int {
	if n < 1 {
		n = runtime.NumCPU() + 2
	}
	return min(n, 16)
}

// Each hands files to workers created by newWorker, one per goroutine, and
// returns the errors they reported. Files not yet handed out when ctx is
// cancelled are skipped.
func Each(ctx context.Context, files []string, workers int, newWorker func() Worker) []error {
	if len(files) == 0 {
		return nil
	}
	workers = min(WorkerCount(workers), len(files))

	fileChan := make(chan string, 100)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			w := newWorker()
			defer w.Done()

			for path := range fileChan {
				if err := w.Handle(path); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

send:
	for _, path := range files {
		select {
		case <-ctx.Done():
			break send
		case fileChan <- path:
		}
	}
	close(fileChan)

	wg.Wait()
	return errs
}
