package esm

// globalTimerSlot is a timer that owns its callback. An armed slot holds a
// handler that has not been released yet.
type globalTimerSlot struct {
	timerSlot
	handler genericHandler
}

// detach frees the slot and returns the handler it held.
func (s *globalTimerSlot) detach() genericHandler {
	h := s.handler
	s.handler = genericHandler{}
	s.expired = true
	return h
}

// SetGlobalTimer arms global timer id with its own handler. Global timers
// are independent of the active EventHandler and survive handler swaps.
// h.Release runs exactly once: when the timer is killed, when a one-shot
// timer fires, or when the Machine is cleaned up.
func (m *Machine) SetGlobalTimer(id TimerID, timeout Tick, repeat bool, h Handler) error {
	const op = "set_global_timer"

	if isNilHandler(h) {
		return parameterError(op, "nil handler")
	}
	if err := m.checkPrepared(op); err != nil {
		return err
	}
	slot, err := m.globalTimerSlot(op, id)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return parameterError(op, "negative timeout %d", timeout)
	}
	gh, ok := sanitizeHandler(h)
	if !ok {
		return parameterError(op, "handler has no invoke function")
	}
	if !slot.expired {
		return stateError(op, "global timer %d is armed", id)
	}

	slot.handler = gh
	slot.arm(m.platform.Now(), timeout, repeat)
	return nil
}

// KillGlobalTimer stops global timer id and releases its handler. Killing
// an expired global timer is not an error.
func (m *Machine) KillGlobalTimer(id TimerID) error {
	const op = "kill_global_timer"

	if err := m.checkPrepared(op); err != nil {
		return err
	}
	slot, err := m.globalTimerSlot(op, id)
	if err != nil {
		return err
	}
	if slot.expired {
		return nil
	}
	h := slot.detach()
	h.release()
	return nil
}

// GlobalTimerExpired reports whether global timer id is free.
func (m *Machine) GlobalTimerExpired(id TimerID) (bool, error) {
	slot, err := m.globalTimerSlot("global_timer_expired", id)
	if err != nil {
		return false, err
	}
	return slot.expired, nil
}

func (m *Machine) globalTimerSlot(op string, id TimerID) (*globalTimerSlot, error) {
	if int64(id) >= int64(len(m.globalTimers)) {
		return nil, parameterError(op, "global timer id %d out of range [0, %d)", id, len(m.globalTimers))
	}
	return &m.globalTimers[id], nil
}

func (m *Machine) stopGlobalTimers() {
	for i := range m.globalTimers {
		slot := &m.globalTimers[i]
		if slot.expired {
			continue
		}
		h := slot.detach()
		h.release()
	}
}

// processGlobalTimers fires due global timers. A one-shot slot is freed
// before its callback runs, so the callback may re-arm it; the detached
// handler is released after invoke returns.
func (m *Machine) processGlobalTimers() {
	now := m.platform.Now()
	for i := range m.globalTimers {
		slot := &m.globalTimers[i]
		if !slot.due(now) {
			continue
		}
		if slot.repeat {
			slot.fire()
			h := slot.handler
			h.invoke()
		} else {
			h := slot.detach()
			h.invoke()
			h.release()
		}
		m.applyPendingSwap()
	}
}
