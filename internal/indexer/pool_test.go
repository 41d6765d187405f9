package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingWorker struct {
	handled *atomic.Int64
	done    *atomic.Int64
	fail    string
}

func (w *countingWorker) Handle(path string) error {
	w.handled.Add(1)
	if path == w.fail {
		return errors.New("failed " + path)
	}
	return nil
}

func (w *countingWorker) Done() {
	w.done.Add(1)
}

func TestEach(t *testing.T) {
	var files []string
	for i := 0; i < 40; i++ {
		files = append(files, fmt.Sprintf("f%d.php", i))
	}

	var handled, done, created atomic.Int64
	errs := Each(context.Background(), files, 4, func() Worker {
		created.Add(1)
		return &countingWorker{handled: &handled, done: &done, fail: "f7.php"}
	})

	assert.Equal(t, int64(40), handled.Load())
	assert.Equal(t, created.Load(), done.Load(), "every worker is finished")
	assert.LessOrEqual(t, created.Load(), int64(4))
	assert.Len(t, errs, 1)
}

func TestEachEmpty(t *testing.T) {
	var once sync.Once
	called := false
	errs := Each(context.Background(), nil, 4, func() Worker {
		once.Do(func() { called = true })
		return nil
	})
	assert.Nil(t, errs)
	assert.False(t, called)
}

func TestWorkerCount(t *testing.T) {
	assert.Equal(t, 3, WorkerCount(3))
	assert.Equal(t, 16, WorkerCount(64))
	assert.GreaterOrEqual(t, WorkerCount(0), 1)
}
