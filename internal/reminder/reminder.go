// Package reminder fires one-shot notifications a lead time before a
// programme starts.
package reminder

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLead is how long before the start a reminder fires.
const DefaultLead = 2 * time.Minute

var (
	// ErrNegativeLead is returned for a lead time below zero.
	ErrNegativeLead = errors.New("reminder lead must not be negative")
	// ErrStopped is returned once the scheduler has been stopped.
	ErrStopped = errors.New("reminder scheduler stopped")
)

// Bodies passed to the Notifier.
const (
	BodySoon = "Starting soon"
	BodyNow  = "Starting now"
)

// Notifier delivers a reminder to the user.
type Notifier interface {
	Notify(title, body string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, body string) error

// Notify calls f.
func (f NotifierFunc) Notify(title, body string) error { return f(title, body) }

// Handle identifies an armed reminder.
type Handle struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	FireAt time.Time `json:"fireAt"`

	timer *time.Timer
}

// Scheduler arms reminders. Each reminder owns its own timer; the scheduler
// only tracks the pending ones so they can be listed and cancelled.
type Scheduler struct {
	notifier Notifier
	lead     time.Duration
	now      func() time.Time
	onError  func(title string, err error)

	mu      sync.Mutex
	pending map[string]*Handle
	stopped bool
}

// New returns a Scheduler delivering through n. A zero lead means DefaultLead.
func New(n Notifier, lead time.Duration) *Scheduler {
	if lead <= 0 {
		lead = DefaultLead
	}
	return &Scheduler{
		notifier: n,
		lead:     lead,
		now:      time.Now,
		onError:  func(string, error) {},
		pending:  make(map[string]*Handle),
	}
}

// OnError registers a callback for notification failures of armed timers.
func (s *Scheduler) OnError(fn func(title string, err error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

// Schedule arranges for title to be announced lead before start. When that
// moment has already passed the notification is sent synchronously and the
// returned handle is nil. Otherwise a timer is armed and its handle returned.
func (s *Scheduler) Schedule(start time.Time, title string, lead time.Duration) (*Handle, error) {
	if lead < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeLead, lead)
	}
	fireAt := start.Add(-lead)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	delay := fireAt.Sub(s.now())
	if delay <= 0 {
		s.mu.Unlock()
		if err := s.notifier.Notify(title, BodySoon); err != nil {
			return nil, fmt.Errorf("notify %q: %w", title, err)
		}
		return nil, nil
	}

	h := &Handle{ID: uuid.NewString(), Title: title, FireAt: fireAt}
	h.timer = time.AfterFunc(delay, func() { s.fire(h) })
	s.pending[h.ID] = h
	s.mu.Unlock()
	return h, nil
}

// ScheduleDefault schedules with the scheduler's default lead.
func (s *Scheduler) ScheduleDefault(start time.Time, title string) (*Handle, error) {
	return s.Schedule(start, title, s.lead)
}

func (s *Scheduler) fire(h *Handle) {
	s.mu.Lock()
	if _, ok := s.pending[h.ID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, h.ID)
	onError := s.onError
	s.mu.Unlock()

	if err := s.notifier.Notify(h.Title, BodyNow); err != nil {
		onError(h.Title, err)
	}
}

// Cancel disarms h. Cancelling a nil, fired or already cancelled handle
// does nothing.
func (s *Scheduler) Cancel(h *Handle) {
	if h == nil {
		return
	}
	s.CancelByID(h.ID)
}

// CancelByID disarms the pending reminder with the given id and reports
// whether one was pending.
func (s *Scheduler) CancelByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	h.timer.Stop()
	return true
}

// Pending returns the armed reminders ordered by fire time.
func (s *Scheduler) Pending() []Handle {
	s.mu.Lock()
	out := make([]Handle, 0, len(s.pending))
	for _, h := range s.pending {
		out = append(out, Handle{ID: h.ID, Title: h.Title, FireAt: h.FireAt})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out
}

// Stop disarms every pending reminder and rejects new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, h := range s.pending {
		h.timer.Stop()
		delete(s.pending, id)
	}
}
