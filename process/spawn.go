package process

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena"
)

var (
	ErrSpawn       = errors.New("process spawn failed")
	ErrNotExistent = errors.New("executable does not exist")
	ErrNotSpawned  = errors.New("process was not spawned")
)

const (
	// DefaultScratchReservedSize bounds how much of one stream Wait can
	// capture. Exceeding it is fatal.
	DefaultScratchReservedSize uint64 = 1 << 30
	// DefaultScratchGranularity is the commit step of the scratch arenas.
	DefaultScratchGranularity uint64 = 64 << 10
)

// Options controls how Spawn launches a child.
type Options struct {
	Capture Capture
	Logger  *zap.Logger
	// Verbose logs every launch attempt with its argument vector.
	Verbose bool

	ScratchReservedSize uint64
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// SpawnError reports a child that could not be started. It matches Kind
// and the underlying error under errors.Is.
type SpawnError struct {
	Kind       error
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// SpawnResult is a running child plus the parent side of every captured
// stream.
type SpawnResult struct {
	cmd   *exec.Cmd
	pid   int
	pipes [StreamCount]*os.File
	// scratch holds one drain arena per output stream.
	scratch *vmarena.Batch
	log     *zap.Logger
}

// Pid returns the child's process id.
func (s *SpawnResult) Pid() int {
	return s.pid
}

// Pipe returns the parent's endpoint for stream, or nil if it was not
// captured. Stdin is a write end, stdout and stderr are read ends.
func (s *SpawnResult) Pipe(stream Stream) *os.File {
	if stream < 0 || stream >= StreamCount {
		return nil
	}
	return s.pipes[stream]
}

// Stdin is Pipe(Stdin).
func (s *SpawnResult) Stdin() *os.File {
	return s.pipes[Stdin]
}

// Spawn starts executable with argv and envp. An executable without a path
// separator is looked up in PATH. argv[0] is passed through as the child's
// program name; an empty argv becomes {executable}. A nil envp inherits the
// parent's environment.
//
// Streams in opts.Capture are redirected through pipes, the rest are
// inherited. On failure nothing is left open and the error wraps
// ErrNotExistent or ErrSpawn.
func Spawn(executable string, argv, envp []string, opts Options) (*SpawnResult, error) {
	log := opts.logger()
	if len(argv) == 0 {
		argv = []string{executable}
	}

	path, err := exec.LookPath(executable)
	if err != nil {
		return nil, launchFailed(log, opts, executable, argv, err)
	}

	s := &SpawnResult{
		cmd: &exec.Cmd{Path: path, Args: argv, Env: envp},
		log: log,
	}
	var child [StreamCount]*os.File
	closeAll := func() {
		for _, f := range child {
			closeQuietly(f)
		}
		s.release()
	}

	for stream := Stream(0); stream < StreamCount; stream++ {
		if !opts.Capture.Has(stream) {
			continue
		}
		r, w, err := os.Pipe()
		if err != nil {
			closeAll()
			return nil, launchFailed(log, opts, executable, argv, pkgerrors.Wrapf(err, "creating %s pipe", stream))
		}
		if stream == Stdin {
			child[stream], s.pipes[stream] = r, w
		} else {
			s.pipes[stream], child[stream] = r, w
		}
	}
	s.cmd.Stdin = orInherit(child[Stdin], os.Stdin)
	s.cmd.Stdout = orInherit(child[Stdout], os.Stdout)
	s.cmd.Stderr = orInherit(child[Stderr], os.Stderr)

	if opts.Capture.Has(Stdout) || opts.Capture.Has(Stderr) {
		s.scratch, err = newScratch(opts)
		if err != nil {
			closeAll()
			return nil, launchFailed(log, opts, executable, argv, err)
		}
	}

	if err := s.cmd.Start(); err != nil {
		closeAll()
		return nil, launchFailed(log, opts, executable, argv, err)
	}
	s.pid = s.cmd.Process.Pid
	for _, f := range child {
		closeQuietly(f)
	}

	if opts.Verbose {
		log.Info("launched", zap.Strings("argv", argv), zap.Int("pid", s.Pid()))
	}
	return s, nil
}

func newScratch(opts Options) (*vmarena.Batch, error) {
	reserved := opts.ScratchReservedSize
	if reserved == 0 {
		reserved = DefaultScratchReservedSize
	}
	granularity := max(DefaultScratchGranularity, uint64(os.Getpagesize()))
	b, err := vmarena.Create(vmarena.Creation{
		ReservedSize: vmarena.AlignForward(reserved, granularity),
		Granularity:  granularity,
		InitialSize:  granularity,
		Count:        2,
	})
	return b, pkgerrors.Wrap(err, "reserving capture buffers")
}

func launchFailed(log *zap.Logger, opts Options, executable string, argv []string, err error) error {
	kind := ErrSpawn
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		kind = ErrNotExistent
	}
	if opts.Verbose {
		log.Warn("failed to launch", zap.Strings("argv", argv), zap.Error(err))
	}
	return &SpawnError{Kind: kind, Executable: executable, Err: err}
}

func orInherit(f, parent *os.File) *os.File {
	if f != nil {
		return f
	}
	return parent
}

func closeQuietly(f *os.File) {
	if f != nil {
		f.Close()
	}
}
