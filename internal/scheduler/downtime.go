package scheduler

import (
	"sync"
	"time"

	"sitewatch/internal/domain"
)

// Transition classifies what a status change means for a target's
// downtime session.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionWentDown
	TransitionRecovered
)

type session struct {
	start    time.Time
	notified bool
}

// DowntimeTracker holds the open downtime session per target. State lives
// only for the life of the process; a restart loses in-flight timers,
// which is a documented limitation of the design.
type DowntimeTracker struct {
	mu       sync.Mutex
	sessions map[domain.TargetID]*session
}

func NewDowntimeTracker() *DowntimeTracker {
	return &DowntimeTracker{sessions: make(map[domain.TargetID]*session)}
}

// Observe feeds one previous/new status pair through the state machine.
// up/unknown -> down opens a session; down -> up closes it and reports the
// floored downtime in minutes. Repeated downs never open a second session.
func (d *DowntimeTracker) Observe(id domain.TargetID, prev, next domain.Status, now time.Time) (Transition, int) {
	wasDown := prev == domain.StatusDown
	isDown := next == domain.StatusDown

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case !wasDown && isDown:
		if _, open := d.sessions[id]; open {
			return TransitionNone, 0
		}
		d.sessions[id] = &session{start: now, notified: true}
		return TransitionWentDown, 0
	case wasDown && !isDown:
		s, open := d.sessions[id]
		if !open {
			return TransitionNone, 0
		}
		delete(d.sessions, id)
		minutes := int(now.Sub(s.start).Minutes())
		return TransitionRecovered, minutes
	default:
		return TransitionNone, 0
	}
}

// Forget drops any open session for a deleted target.
func (d *DowntimeTracker) Forget(id domain.TargetID) {
	d.mu.Lock()
	delete(d.sessions, id)
	d.mu.Unlock()
}

// Open reports whether a downtime session is currently open for id.
func (d *DowntimeTracker) Open(id domain.TargetID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sessions[id]
	return ok
}
