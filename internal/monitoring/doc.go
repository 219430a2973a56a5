/*
Package monitoring provides Prometheus metrics for arenas, worker threads
and child processes.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	// Count growth commits of worker arenas
	creation.OnCommit = metrics.OnCommit

	// Observe a bootstrap run
	thread.Run(ctx, state, entry, thread.WithRecorder(metrics))

	// Dump everything in text exposition format
	metrics.WriteText(os.Stderr)
*/
package monitoring
