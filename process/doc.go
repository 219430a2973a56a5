// Package process launches child processes and waits for them
// synchronously, capturing selected standard streams into arena memory.
//
// Captured stdout and stderr are drained while the child runs, each by its
// own goroutine writing into a private scratch arena, so a chatty child
// never blocks on a full pipe. Once the child has exited and both streams
// reached EOF the bytes are copied contiguously into the arena the caller
// passed to Wait; they stay valid until that arena is reset or destroyed.
//
// Nothing here is cancellable: Wait blocks until the child exits.
package process
