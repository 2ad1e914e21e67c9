package session

import "time"

// SetClock overrides the manager's time source for testing purposes.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}
