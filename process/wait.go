package process

import (
	"errors"
	"io"
	"os/exec"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pavanmanishd/vmarena"
)

const drainChunk = 32 << 10

// outputs maps scratch slots to the streams drained into them.
var outputs = [2]Stream{Stdout, Stderr}

// WaitResult is a finished child. Streams holds the captured bytes of
// stdout and stderr, located in the arena given to Wait; Streams[Stdin] is
// always nil.
type WaitResult struct {
	Streams  [StreamCount][]byte
	Result   Result
	ExitCode int
}

func (w WaitResult) Stdout() []byte { return w.Streams[Stdout] }
func (w WaitResult) Stderr() []byte { return w.Streams[Stderr] }

// Wait closes the child's stdin pipe, drains captured output while the
// child runs and blocks until it exits. Captured bytes are copied into
// arena, which may be nil only when no output stream was captured.
//
// A non-zero exit is reported as Failed and death by signal as Crash, both
// without an error. A nil or already waited spawn returns Unknown and
// ErrNotSpawned.
func Wait(arena *vmarena.Arena, s *SpawnResult) (WaitResult, error) {
	if s == nil || s.cmd == nil {
		return WaitResult{Result: Unknown, ExitCode: -1}, ErrNotSpawned
	}
	defer s.release()

	closeQuietly(s.pipes[Stdin])
	s.pipes[Stdin] = nil

	var g errgroup.Group
	for slot, stream := range outputs {
		r := s.pipes[stream]
		if r == nil {
			continue
		}
		a := s.scratch.Arena(slot)
		g.Go(func() error {
			return pkgerrors.Wrapf(drain(a, r), "draining %s", stream)
		})
	}

	waitErr := s.cmd.Wait()
	drainErr := g.Wait()

	res := WaitResult{ExitCode: -1}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		res.Result, res.ExitCode = Success, 0
	case errors.As(waitErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		res.Result = Failed
		if res.ExitCode < 0 {
			res.Result = Crash
		}
		waitErr = nil
	default:
		res.Result = Unknown
		waitErr = pkgerrors.Wrap(waitErr, "waiting for child")
	}
	if drainErr != nil && res.Result == Success {
		res.Result = Failed
	}

	for slot, stream := range outputs {
		if s.pipes[stream] == nil {
			continue
		}
		vmarena.Check(arena != nil, "captured output needs a destination arena")
		src := s.scratch.Arena(slot).Buffer()
		dst := arena.Allocate(uint64(len(src)), 1)
		copy(dst, src)
		res.Streams[stream] = dst
	}

	s.log.Debug("child exited",
		zap.Int("pid", s.pid),
		zap.Stringer("result", res.Result),
		zap.Int("exit_code", res.ExitCode))
	return res, errors.Join(waitErr, drainErr)
}

// Run spawns executable and waits for it. A launch failure is reported as
// NotExistent or Failed together with the spawn error.
func Run(arena *vmarena.Arena, executable string, argv, envp []string, opts Options) (WaitResult, error) {
	s, err := Spawn(executable, argv, envp, opts)
	if err != nil {
		res := WaitResult{Result: Failed, ExitCode: -1}
		if errors.Is(err, ErrNotExistent) {
			res.Result = NotExistent
		}
		return res, err
	}
	return Wait(arena, s)
}

// drain copies r into a until EOF. The arena grows in place; a stream
// larger than the reservation is fatal.
func drain(a *vmarena.Arena, r io.Reader) error {
	a.Claim()
	defer a.Unclaim()

	for {
		start := a.Position()
		room := min(drainChunk, a.ReservedSize()-start)
		vmarena.Check(room > 0, "captured stream exceeds its reservation",
			zap.Uint64("reserved", a.ReservedSize()))

		buf := a.Allocate(room, 1)
		n, err := r.Read(buf)
		a.SetPosition(start + uint64(n))
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *SpawnResult) release() {
	for i := range s.pipes {
		closeQuietly(s.pipes[i])
		s.pipes[i] = nil
	}
	if s.scratch != nil {
		if err := s.scratch.Destroy(); err != nil {
			s.log.Warn("releasing capture buffers", zap.Error(err))
		}
		s.scratch = nil
	}
	s.cmd = nil
}
