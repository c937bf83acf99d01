// Package platform provides a hosted esm.Platform.
//
// Host bundles the resources a Machine consumes but never owns: a
// fixed-capacity message cell pool, a bounded event ring that any
// goroutine may post to, a millisecond tick source and the mutex that
// guards the message queue.
//
// Lifecycle mirrors the Machine's:
//
//	Initialize -> Prepare -> (run) -> Cleanup -> Finalize
//
// Prepare resets the cell pool and event queue, so events posted before a
// Machine is prepared are rejected rather than replayed.
package platform
