package thread

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena"
	"github.com/pavanmanishd/vmarena/process"
)

// State is the process-wide input of a bootstrap run. It is built once at
// start-up and only read afterwards.
type State struct {
	Argv    []string
	Envp    []string
	Policy  Policy
	Verbose bool
	// Arena is the root arena. Only one worker may hold it at a time.
	Arena  *vmarena.Arena
	Logger *zap.Logger
}

// NewState copies argv and envp into a new State.
func NewState(argv, envp []string, policy Policy, root *vmarena.Arena, logger *zap.Logger) *State {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &State{
		Argv:   slices.Clone(argv),
		Envp:   slices.Clone(envp),
		Policy: policy,
		Arena:  root,
		Logger: logger,
	}
}

func (s *State) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// EntryPoint is the work every thread of a run executes.
type EntryPoint func(ctx context.Context) process.Result

// Thread is one worker of a run: its index, the arena it owns and the
// entry point it executes. A thread never outlives Run.
type Thread struct {
	Index int
	Arena *vmarena.Arena
	Entry EntryPoint

	handle Handle
}

type threadKey struct{}

type stateKey struct{}

// WithThread returns ctx carrying t.
func WithThread(ctx context.Context, t *Thread) context.Context {
	return context.WithValue(ctx, threadKey{}, t)
}

// FromContext returns the thread ctx runs on.
func FromContext(ctx context.Context) (*Thread, bool) {
	t, ok := ctx.Value(threadKey{}).(*Thread)
	return t, ok
}

// ArenaFrom returns the arena owned by the thread ctx runs on, or nil.
func ArenaFrom(ctx context.Context) *vmarena.Arena {
	if t, ok := FromContext(ctx); ok {
		return t.Arena
	}
	return nil
}

// WithState returns ctx carrying s.
func WithState(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// StateFrom returns the State of the run ctx belongs to.
func StateFrom(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(stateKey{}).(*State)
	return s, ok
}
