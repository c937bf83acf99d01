package esm

import "fmt"

// messageCell is a queued message. Cells are owned by exactly one of the
// arena, the queue, or the drain in progress.
type messageCell struct {
	handler genericHandler
	next    CellID
}

// PostMessage appends msg to the message queue. It is the only method that
// may be called from any goroutine, including from inside callbacks.
// Messages run in post order during a later ResumeAndYield; a message
// posted while the queue is draining runs on the following pass.
func (m *Machine) PostMessage(msg Handler) error {
	const op = "post_message"

	if isNilHandler(msg) {
		return parameterError(op, "nil message")
	}
	if m.platform == nil {
		return stateError(op, "nil platform")
	}

	m.platform.Lock()
	defer m.platform.Unlock()

	if !m.initialized || !m.prepared {
		return stateError(op, "machine is not prepared")
	}
	gh, ok := sanitizeHandler(msg)
	if !ok {
		return parameterError(op, "message has no invoke function")
	}
	id, ok := m.platform.AllocMessageCell()
	if !ok {
		return newError(op, CodeResourceExhausted, "message arena exhausted")
	}
	if id < 0 || int(id) >= len(m.cells) {
		return platformError(op, fmt.Errorf("arena issued cell %d outside [0, %d)", id, len(m.cells)))
	}

	m.cells[id] = messageCell{handler: gh, next: noCell}
	if m.tail == noCell {
		m.head = id
	} else {
		m.cells[m.tail].next = id
	}
	m.tail = id
	m.queued++
	return nil
}

// PendingMessages returns the number of messages waiting in the queue.
// Messages detached by a drain in progress are not counted.
func (m *Machine) PendingMessages() int {
	if m.platform == nil {
		return 0
	}
	m.platform.Lock()
	defer m.platform.Unlock()
	return m.queued
}

// detachMessages empties the queue and returns its former head. The
// platform lock must be held.
func (m *Machine) detachMessages() CellID {
	head := m.head
	m.head, m.tail, m.queued = noCell, noCell, 0
	return head
}

// processMessages drains the queue snapshot taken on entry. Callbacks run
// outside the lock so they can post.
func (m *Machine) processMessages() {
	m.platform.Lock()
	id := m.detachMessages()
	m.platform.Unlock()

	for id != noCell {
		cell := m.cells[id]
		cell.handler.invoke()
		cell.handler.release()
		m.freeCell(id)
		id = cell.next
		m.applyPendingSwap()
	}
}

// releaseMessages releases detached messages without running them.
func (m *Machine) releaseMessages(id CellID) {
	for id != noCell {
		cell := m.cells[id]
		cell.handler.release()
		m.freeCell(id)
		id = cell.next
	}
}

func (m *Machine) freeCell(id CellID) {
	m.platform.Lock()
	m.cells[id] = messageCell{next: noCell}
	m.platform.DeallocMessageCell(id)
	m.platform.Unlock()
}
