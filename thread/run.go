package thread

import (
	"context"

	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena"
	"github.com/pavanmanishd/vmarena/process"
)

// Report describes a finished run.
type Report struct {
	Result process.Result
	// Workers is the number of threads the policy resolved to.
	Workers       int
	Spawned       int
	SpawnFailures int
	JoinFailures  int
	// Results holds the result of every joined worker in spawn order, or
	// the inline result when Workers is 0.
	Results []process.Result
}

// Recorder observes a run. internal/monitoring provides a Prometheus one.
type Recorder interface {
	WorkersResolved(policy string, n int)
	SpawnFailed()
	JoinFailed()
	WorkerFinished(r process.Result)
}

type nopRecorder struct{}

func (nopRecorder) WorkersResolved(string, int)   {}
func (nopRecorder) SpawnFailed()                  {}
func (nopRecorder) JoinFailed()                   {}
func (nopRecorder) WorkerFinished(process.Result) {}

type runConfig struct {
	spawner  Spawner
	cores    CoreCounter
	creation vmarena.Creation
	recorder Recorder
}

// Option configures Run.
type Option func(*runConfig)

// WithSpawner replaces the OS thread spawner.
func WithSpawner(s Spawner) Option {
	return func(c *runConfig) { c.spawner = s }
}

// WithCoreCounter replaces core detection.
func WithCoreCounter(cc CoreCounter) Option {
	return func(c *runConfig) { c.cores = cc }
}

// WithCreation sets the parameters of the worker arenas. Count is ignored.
func WithCreation(cr vmarena.Creation) Option {
	return func(c *runConfig) { c.creation = cr }
}

// WithRecorder reports the run to r.
func WithRecorder(r Recorder) Option {
	return func(c *runConfig) { c.recorder = r }
}

// Run executes entry under state's spawn policy and aggregates the outcome.
// It blocks until every started worker has been joined.
func Run(ctx context.Context, state *State, entry EntryPoint, opts ...Option) Report {
	log := state.logger()
	cfg := runConfig{
		spawner:  &OSThreads{},
		cores:    SystemCores{Logger: log},
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(&cfg)
	}
	ctx = WithState(ctx, state)

	n := ResolveWorkers(state.Policy, cfg.cores)
	cfg.recorder.WorkersResolved(state.Policy.String(), n)
	if n == 0 {
		return runInline(ctx, state, entry, cfg.recorder)
	}

	report := Report{Workers: n}
	creation := cfg.creation
	creation.Count = n
	batch, err := vmarena.Create(creation)
	if err != nil {
		log.Error("creating worker arenas", zap.Int("workers", n), zap.Error(err))
		report.Result = process.Failed
		return report
	}
	defer func() {
		if err := batch.Destroy(); err != nil {
			log.Error("releasing worker arenas", zap.Error(err))
		}
	}()

	threads := make([]Thread, n)
	results := make([]process.Result, n)
	for i := range threads {
		t := &threads[i]
		*t = Thread{Index: i, Arena: batch.Arena(i), Entry: entry}
		h, err := cfg.spawner.Spawn(func() {
			t.Arena.With(func(*vmarena.Arena) {
				results[t.Index] = t.Entry(WithThread(ctx, t))
			})
		})
		if err != nil {
			report.SpawnFailures++
			cfg.recorder.SpawnFailed()
			log.Warn("spawning worker", zap.Int("thread", i), zap.Error(err))
			continue
		}
		t.handle = h
		report.Spawned++
	}

	for i := range threads {
		t := &threads[i]
		if t.handle == nil {
			continue
		}
		if err := t.handle.Join(); err != nil {
			report.JoinFailures++
			cfg.recorder.JoinFailed()
			log.Warn("joining worker", zap.Int("thread", i), zap.Error(err))
			continue
		}
		report.Results = append(report.Results, results[i])
		cfg.recorder.WorkerFinished(results[i])
	}

	report.Result = aggregate(report)
	if state.Verbose {
		log.Info("workers finished",
			zap.Stringer("result", report.Result),
			zap.Int("workers", n),
			zap.Int("spawned", report.Spawned),
			zap.Int("join_failures", report.JoinFailures))
	}
	return report
}

func runInline(ctx context.Context, state *State, entry EntryPoint, rec Recorder) Report {
	var r process.Result
	state.Arena.With(func(a *vmarena.Arena) {
		r = entry(WithThread(ctx, &Thread{Arena: a, Entry: entry}))
	})
	rec.WorkerFinished(r)
	return Report{Result: r, Results: []process.Result{r}}
}

// aggregate is worst-of-all: any failed start, failed join or failed worker
// fails the run.
func aggregate(r Report) process.Result {
	if r.SpawnFailures > 0 || r.JoinFailures > 0 {
		return process.Failed
	}
	for _, res := range r.Results {
		if !res.OK() {
			return process.Failed
		}
	}
	return process.Success
}
