package esm

// timerSlot is one software timer. An expired slot is free.
type timerSlot struct {
	timeout  Tick
	expireAt Tick
	expired  bool
	repeat   bool
}

// arm schedules the slot relative to now.
func (s *timerSlot) arm(now, timeout Tick, repeat bool) {
	s.timeout = timeout
	s.expireAt = now + timeout
	s.repeat = repeat
	s.expired = false
}

// due reports whether an armed slot has reached its expiry. The signed
// difference keeps the comparison correct across one tick wraparound.
func (s *timerSlot) due(now Tick) bool {
	return !s.expired && now-s.expireAt >= 0
}

// fire advances a due slot: repeat timers are rescheduled from their
// previous expiry, one-shot timers expire.
func (s *timerSlot) fire() {
	if s.repeat {
		s.expireAt += s.timeout
	} else {
		s.expired = true
	}
}

// SetTimer arms per-handler timer id to fire after timeout ticks, and
// every timeout ticks thereafter if repeat is set. The slot must be
// expired. Timers are stopped whenever the active handler changes.
func (m *Machine) SetTimer(id TimerID, timeout Tick, repeat bool) error {
	const op = "set_timer"

	if err := m.checkPrepared(op); err != nil {
		return err
	}
	slot, err := m.timerSlot(op, id)
	if err != nil {
		return err
	}
	if timeout < 0 {
		return parameterError(op, "negative timeout %d", timeout)
	}
	if !slot.expired {
		return stateError(op, "timer %d is armed", id)
	}

	slot.arm(m.platform.Now(), timeout, repeat)
	return nil
}

// KillTimer stops per-handler timer id. Killing an expired timer is not an
// error.
func (m *Machine) KillTimer(id TimerID) error {
	const op = "kill_timer"

	if err := m.checkPrepared(op); err != nil {
		return err
	}
	slot, err := m.timerSlot(op, id)
	if err != nil {
		return err
	}
	slot.expired = true
	return nil
}

// TimerExpired reports whether per-handler timer id is free.
func (m *Machine) TimerExpired(id TimerID) (bool, error) {
	slot, err := m.timerSlot("timer_expired", id)
	if err != nil {
		return false, err
	}
	return slot.expired, nil
}

func (m *Machine) timerSlot(op string, id TimerID) (*timerSlot, error) {
	if int64(id) >= int64(len(m.timers)) {
		return nil, parameterError(op, "timer id %d out of range [0, %d)", id, len(m.timers))
	}
	return &m.timers[id], nil
}

func (m *Machine) stopTimers() {
	for i := range m.timers {
		m.timers[i].expired = true
	}
}

func (m *Machine) processTimers() {
	now := m.platform.Now()
	for i := range m.timers {
		slot := &m.timers[i]
		if !slot.due(now) {
			continue
		}
		slot.fire()
		m.current.onTimer(TimerID(i))
		m.applyPendingSwap()
	}
}
