// Package esm implements the event state machine runtime.
//
// A Machine is a single-threaded, non-blocking dispatcher. The embedding
// application drives it by calling ResumeAndYield in a loop; every call
// performs one bounded pass and returns:
//
//  1. apply a handler swap requested by a previous callback
//  2. dispatch at most one external event to the active EventHandler
//  3. fire expired per-handler timers (ascending id order)
//  4. fire expired global timers (ascending id order)
//  5. drain the message queue snapshot taken at the start of this step
//
// # Handler swaps
//
// SetNextHandler never replaces the active handler synchronously. The swap is
// committed at a single choke point that runs at the start of every pass and
// after every callback that may have requested it. On commit, all per-handler
// timers are stopped, the outgoing handler receives OnDestroy then Release,
// and the incoming handler receives OnInit.
//
// # Threading
//
// Only PostMessage may be called from a goroutine other than the driver. It is
// synchronized through the Platform lock, which is held for list splicing only
// and never while a callback runs. Every other method is driver-only.
//
// # Lifecycle
//
//	Uninitialized --Initialize--> Initialized --Prepare--> Prepared
//	Prepared --Cleanup--> Initialized --Finalize--> Uninitialized
//
// Events, timers and messages are processed only while Prepared.
package esm
