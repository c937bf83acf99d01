package esm

import "sync"

// CellID is an arena-issued index of a message cell.
type CellID int

// noCell terminates the message list.
const noCell CellID = -1

// Clock is the platform tick source.
type Clock interface {
	// Now returns the current tick. Units are whatever the timeouts passed
	// to SetTimer and SetGlobalTimer are expressed in.
	Now() Tick
}

// EventSource is the platform's externally fed event queue.
type EventSource interface {
	// PeekEvent removes and returns the next event without blocking.
	PeekEvent() (EventID, bool)
}

// CellArena is a fixed-capacity pool of message cell indices.
type CellArena interface {
	// AllocMessageCell returns a free cell, or false when exhausted.
	// It never blocks.
	AllocMessageCell() (CellID, bool)
	// DeallocMessageCell returns a cell to the pool.
	DeallocMessageCell(id CellID)
	// MessageCapacity is the number of cells the arena can issue. Issued
	// ids are always in [0, MessageCapacity).
	MessageCapacity() int
}

// Platform is the target-specific adaptation layer a Machine runs on.
//
// The embedded sync.Locker must be non-reentrant mutual exclusion. The
// Machine holds it only around message list splicing and cell returns.
type Platform interface {
	Clock
	EventSource
	CellArena
	sync.Locker

	// Initialize is called by Machine.Initialize.
	Initialize() error
	// Finalize is called by Machine.Finalize.
	Finalize()
	// Prepare is called by Machine.Prepare before the default handler is
	// installed.
	Prepare() error
	// Cleanup is called by Machine.Cleanup after all handlers are released.
	Cleanup() error
}
