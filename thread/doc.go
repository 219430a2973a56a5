// Package thread turns a spawn policy into worker OS threads, each owning a
// private arena, and folds their results into one.
//
// Run resolves the policy to N workers. With N == 0 the entry point runs
// inline on the state's root arena. Otherwise N arenas are created as one
// batch, one pinned OS thread is started per arena (a failed start is
// counted and the rest are still attempted), every started thread is
// joined in spawn order and the batch is destroyed. The aggregate is
// Failed if any start or join failed or any worker reported failure.
//
// Entry points find their thread and arena through the context:
//
//	func entry(ctx context.Context) process.Result {
//		a := thread.ArenaFrom(ctx)
//		...
//	}
package thread
