// Command vmarena runs a command on every worker thread a spawn policy
// resolves to, each worker capturing the command's output into its own
// arena, and exits with the aggregate result.
//
//	vmarena --policy logical-cores -- cc -c main.c
//
// Settings are read from VMARENA_* environment variables first and can be
// overridden with flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/pavanmanishd/vmarena"
	"github.com/pavanmanishd/vmarena/internal/config"
	"github.com/pavanmanishd/vmarena/internal/logging"
	"github.com/pavanmanishd/vmarena/internal/monitoring"
	"github.com/pavanmanishd/vmarena/process"
	"github.com/pavanmanishd/vmarena/thread"
)

func main() {
	os.Exit(run(os.Args[1:], os.Environ(), os.Stdout, os.Stderr))
}

func run(args, envp []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return int(process.Failed)
	}

	fs := pflag.NewFlagSet("vmarena", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Var(&cfg.Policy, "policy", "thread spawn policy: single-threaded, spawn-single, logical-cores or physical-cores")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log every launch")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level")
	fs.BoolVar(&cfg.Log.Development, "log-dev", cfg.Log.Development, "human readable logs")
	fs.Var(&cfg.Arena.ReservedSize, "reserve", "address space reserved per arena")
	fs.Var(&cfg.Arena.Granularity, "granularity", "arena commit step")
	fs.Var(&cfg.Arena.InitialSize, "initial-size", "bytes committed when an arena is created (0: four commit steps)")
	fs.BoolVar(&cfg.Arena.LockPages, "lock-pages", cfg.Arena.LockPages, "prefault committed pages")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "print metrics to stderr on exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: vmarena [flags] -- command [args...]\n\n%s\n", fs.FlagUsages())
		fmt.Fprintln(stderr, config.Usage())
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return int(process.Success)
		}
		return int(process.Failed)
	}
	command := fs.Args()
	if len(command) == 0 {
		fs.Usage()
		return int(process.Failed)
	}

	logger, err := logging.New(cfg.Logging())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return int(process.Failed)
	}
	defer logger.Sync()
	prev := vmarena.SetLogger(logger.Named("vmarena"))
	defer vmarena.SetLogger(prev)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	creation := cfg.Creation()
	creation.OnCommit = metrics.OnCommit

	root, err := vmarena.New(creation)
	if err != nil {
		logger.Error("creating root arena", zap.Error(err))
		return int(process.Failed)
	}
	defer root.Destroy(1)

	state := thread.NewState(command, envp, cfg.Policy, root, logger)
	state.Verbose = cfg.Verbose

	report := thread.Run(context.Background(), state, runCommand(metrics, &outputs{stdout: stdout, stderr: stderr}),
		thread.WithCreation(creation),
		thread.WithCoreCounter(thread.SystemCores{Logger: logger}),
		thread.WithRecorder(metrics))

	if cfg.Verbose {
		logger.Info("run finished",
			zap.Stringer("policy", cfg.Policy),
			zap.Stringer("result", report.Result),
			zap.Int("workers", report.Workers),
			zap.Int("spawn_failures", report.SpawnFailures),
			zap.Int("join_failures", report.JoinFailures))
	}
	if cfg.Metrics {
		if err := metrics.WriteText(stderr); err != nil {
			logger.Warn("writing metrics", zap.Error(err))
		}
	}
	return int(report.Result)
}

// outputs serializes workers writing captured output.
type outputs struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
}

// write forwards the captured streams of res. A failed write is logged and
// does not change the worker's result.
func (o *outputs) write(log *zap.Logger, res process.WaitResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.stdout.Write(res.Stdout()); err != nil {
		log.Warn("forwarding output", zap.Stringer("stream", process.Stdout), zap.Error(err))
	}
	if _, err := o.stderr.Write(res.Stderr()); err != nil {
		log.Warn("forwarding output", zap.Stringer("stream", process.Stderr), zap.Error(err))
	}
}

// runCommand is the entry point of every worker: run the state's argv once,
// capture its output into the worker's arena and pass it through.
func runCommand(metrics *monitoring.Metrics, out *outputs) thread.EntryPoint {
	return func(ctx context.Context) process.Result {
		state, _ := thread.StateFrom(ctx)
		t, _ := thread.FromContext(ctx)
		log := state.Logger.With(zap.Int("thread", t.Index))

		start := time.Now()
		res, err := process.Run(t.Arena, state.Argv[0], state.Argv, state.Envp, process.Options{
			Capture: process.CaptureOutput,
			Logger:  log,
			Verbose: state.Verbose,
		})
		metrics.ObserveProcess(res, time.Since(start))
		if err != nil {
			log.Error("running command", zap.Strings("argv", state.Argv), zap.Error(err))
		}

		out.write(log, res)
		t.Arena.ResetToStart()
		return res.Result
	}
}
