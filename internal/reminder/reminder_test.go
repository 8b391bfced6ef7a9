package reminder

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	fired chan string
	err   error
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan string, 8)}
}

func (r *recorder) Notify(title, body string) error {
	r.mu.Lock()
	r.calls = append(r.calls, title+"|"+body)
	r.mu.Unlock()
	r.fired <- title + "|" + body
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestScheduleFiresImmediatelyWhenLeadPassed(t *testing.T) {
	rec := newRecorder()
	s := New(rec, 0)

	h, err := s.Schedule(time.Now().Add(time.Minute), "News", 2*time.Minute)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if h != nil {
		t.Errorf("handle = %+v, want nil", h)
	}
	if rec.count() != 1 {
		t.Fatalf("notifications = %d, want 1", rec.count())
	}
	if got := <-rec.fired; got != "News|"+BodySoon {
		t.Errorf("notification = %q", got)
	}
	if len(s.Pending()) != 0 {
		t.Error("immediate reminder left pending")
	}
}

func TestScheduleArmsTimer(t *testing.T) {
	rec := newRecorder()
	s := New(rec, 0)

	h, err := s.Schedule(time.Now().Add(30*time.Millisecond), "Film", 0)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if h == nil {
		t.Fatal("nil handle for future reminder")
	}
	if p := s.Pending(); len(p) != 1 || p[0].ID != h.ID {
		t.Fatalf("pending = %+v", p)
	}

	select {
	case got := <-rec.fired:
		if got != "Film|"+BodyNow {
			t.Errorf("notification = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reminder did not fire")
	}
	if len(s.Pending()) != 0 {
		t.Error("fired reminder still pending")
	}

	// cancelling after firing is a no-op
	s.Cancel(h)
	s.Cancel(h)
}

func TestCancel(t *testing.T) {
	rec := newRecorder()
	s := New(rec, 0)

	h, err := s.Schedule(time.Now().Add(50*time.Millisecond), "Match", 0)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Cancel(h)
	s.Cancel(h)
	s.Cancel(nil)

	time.Sleep(120 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("cancelled reminder fired %d times", rec.count())
	}
	if s.CancelByID(h.ID) {
		t.Error("CancelByID reported a cancelled reminder as pending")
	}
}

func TestRemindersAreIndependent(t *testing.T) {
	rec := newRecorder()
	s := New(rec, 0)
	now := time.Now()

	a, _ := s.Schedule(now.Add(40*time.Millisecond), "A", 0)
	if _, err := s.Schedule(now.Add(20*time.Millisecond), "B", 0); err != nil {
		t.Fatal(err)
	}
	p := s.Pending()
	if len(p) != 2 || p[0].Title != "B" {
		t.Fatalf("pending = %+v, want B first", p)
	}

	s.Cancel(a)
	select {
	case got := <-rec.fired:
		if got != "B|"+BodyNow {
			t.Errorf("notification = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("B did not fire")
	}
	time.Sleep(60 * time.Millisecond)
	if rec.count() != 1 {
		t.Errorf("notifications = %d, want 1", rec.count())
	}
}

func TestScheduleUsesClock(t *testing.T) {
	rec := newRecorder()
	s := New(rec, 0)
	fixed := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	h, err := s.ScheduleDefault(fixed.Add(DefaultLead), "Edge")
	if err != nil {
		t.Fatal(err)
	}
	if h != nil {
		t.Error("reminder due exactly now was armed instead of fired")
	}

	h, err = s.ScheduleDefault(fixed.Add(time.Hour), "Later")
	if err != nil {
		t.Fatal(err)
	}
	if want := fixed.Add(time.Hour - DefaultLead); !h.FireAt.Equal(want) {
		t.Errorf("fireAt = %v, want %v", h.FireAt, want)
	}
	s.Stop()
}

func TestScheduleErrors(t *testing.T) {
	rec := newRecorder()
	rec.err = errors.New("denied")
	s := New(rec, 0)

	if _, err := s.Schedule(time.Now(), "x", -time.Minute); !errors.Is(err, ErrNegativeLead) {
		t.Errorf("negative lead err = %v", err)
	}
	if _, err := s.Schedule(time.Now(), "x", 0); err == nil {
		t.Error("notifier failure not reported")
	}

	s.Stop()
	if _, err := s.Schedule(time.Now().Add(time.Hour), "x", 0); !errors.Is(err, ErrStopped) {
		t.Errorf("after stop err = %v", err)
	}
}

func TestStopDisarmsPending(t *testing.T) {
	rec := newRecorder()
	s := New(rec, 0)
	for i := 0; i < 3; i++ {
		if _, err := s.Schedule(time.Now().Add(30*time.Millisecond), "x", 0); err != nil {
			t.Fatal(err)
		}
	}
	s.Stop()
	time.Sleep(80 * time.Millisecond)
	if rec.count() != 0 {
		t.Errorf("stopped scheduler fired %d reminders", rec.count())
	}
	if len(s.Pending()) != 0 {
		t.Error("pending reminders after Stop")
	}
}
