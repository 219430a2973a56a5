package thread

import (
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

var (
	ErrThreadLimit    = errors.New("thread limit reached")
	ErrWorkerPanicked = errors.New("worker panicked")
)

// Handle is a started worker.
type Handle interface {
	// Join blocks until the worker has finished.
	Join() error
}

// Spawner starts workers.
type Spawner interface {
	Spawn(fn func()) (Handle, error)
}

// OSThreads runs every worker on its own OS thread. The goroutine stays
// locked to its thread until it returns, so the thread exits with it.
type OSThreads struct {
	// MaxThreads caps live workers; 0 means no cap.
	MaxThreads int

	live atomic.Int64
}

// Live returns the number of workers that have not finished.
func (s *OSThreads) Live() int {
	return int(s.live.Load())
}

func (s *OSThreads) Spawn(fn func()) (Handle, error) {
	if n := s.live.Inc(); s.MaxThreads > 0 && n > int64(s.MaxThreads) {
		s.live.Dec()
		return nil, errors.Wrapf(ErrThreadLimit, "%d live", s.MaxThreads)
	}

	h := &osThread{done: make(chan struct{})}
	go func() {
		runtime.LockOSThread()
		defer close(h.done)
		defer s.live.Dec()
		defer func() {
			if r := recover(); r != nil {
				h.err = errors.Wrapf(ErrWorkerPanicked, "%v", r)
			}
		}()
		fn()
	}()
	return h, nil
}

type osThread struct {
	done chan struct{}
	err  error
}

func (t *osThread) Join() error {
	<-t.done
	return t.err
}
