package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeStore struct {
	last    string
	saved   []string
	loadErr error
	saveErr error
}

func (f *fakeStore) Load() (string, error) {
	if f.loadErr != nil {
		return "", f.loadErr
	}
	return f.last, nil
}

func (f *fakeStore) Save(date string) error {
	f.saved = append(f.saved, date)
	f.last = date
	return f.saveErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness drives the loop with a fake clock: each wait advances the
// clock by the requested duration, and the loop is stopped by returning
// false once maxWaits waits have happened.
type harness struct {
	clock    time.Time
	waits    []time.Duration
	maxWaits int
	fires    []string
	sched    *Scheduler
}

func newHarness(t *testing.T, start time.Time, store StateStore, maxWaits int, runErr error, runPanics bool) *harness {
	t.Helper()
	h := &harness{clock: start, maxWaits: maxWaits}
	h.sched = New(State{Timezone: time.UTC, TargetHour: 13, TargetMinute: 0}, store, func(context.Context) error {
		h.fires = append(h.fires, h.clock.Format("2006-01-02"))
		if runPanics {
			panic("boom")
		}
		return runErr
	}, discardLogger())
	h.sched.SetNow(func() time.Time { return h.clock })
	h.sched.wait = func(_ context.Context, d time.Duration) bool {
		h.waits = append(h.waits, d)
		if len(h.waits) > h.maxWaits {
			return false
		}
		h.clock = h.clock.Add(d)
		return true
	}
	return h
}

func TestRunFiresOncePerDay(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{}
	h := newHarness(t, start, store, 3, nil, false)

	if err := h.sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"2026-08-27", "2026-08-28", "2026-08-29"}
	if len(h.fires) != len(want) {
		t.Fatalf("fired %d times %v, want %v", len(h.fires), h.fires, want)
	}
	for i := range want {
		if h.fires[i] != want[i] {
			t.Errorf("fire %d on %q, want %q", i, h.fires[i], want[i])
		}
	}
	if h.waits[0] != 3*time.Hour {
		t.Errorf("first wait = %v, want 3h until 13:00", h.waits[0])
	}
	if h.waits[1] != 24*time.Hour {
		t.Errorf("second wait = %v, want 24h between fires", h.waits[1])
	}
	if store.last != "2026-08-29" {
		t.Errorf("persisted last fire = %q, want 2026-08-29", store.last)
	}
}

func TestRunCatchUpFiresImmediately(t *testing.T) {
	// Restarted at 14:00 with yesterday persisted: today's 13:00 tick was
	// missed, so the loop fires once before any wait.
	start := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	store := &fakeStore{last: "2026-08-28"}
	h := newHarness(t, start, store, 0, nil, false)

	if err := h.sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(h.fires) != 1 || h.fires[0] != "2026-08-29" {
		t.Fatalf("fires = %v, want one catch-up fire on 2026-08-29", h.fires)
	}
	if h.sched.LastFiredDate() != "2026-08-29" {
		t.Errorf("LastFiredDate = %q, want 2026-08-29", h.sched.LastFiredDate())
	}
}

func TestRunNoCatchUpWhenAlreadyFiredToday(t *testing.T) {
	start := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	store := &fakeStore{last: "2026-08-29"}
	h := newHarness(t, start, store, 0, nil, false)

	if err := h.sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.fires) != 0 {
		t.Fatalf("fires = %v, want none (today already fired)", h.fires)
	}
	if h.waits[0] != 23*time.Hour {
		t.Errorf("wait = %v, want 23h until tomorrow 13:00", h.waits[0])
	}
}

func TestRunNoCatchUpBeforeTarget(t *testing.T) {
	start := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, start, &fakeStore{}, 0, nil, false)

	if err := h.sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.fires) != 0 {
		t.Fatalf("fires = %v, want none before target time", h.fires)
	}
	if h.waits[0] != 3*time.Hour {
		t.Errorf("wait = %v, want 3h until 13:00", h.waits[0])
	}
}

func TestRunSpuriousWakeNeverDoubleFires(t *testing.T) {
	start := time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)
	h := newHarness(t, start, &fakeStore{}, 2, nil, false)
	// Second wait returns without advancing the clock.
	base := h.sched.wait
	h.sched.wait = func(ctx context.Context, d time.Duration) bool {
		if len(h.waits) == 1 {
			h.waits = append(h.waits, d)
			return true
		}
		return base(ctx, d)
	}

	if err := h.sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.fires) != 1 || h.fires[0] != "2026-08-27" {
		t.Fatalf("fires = %v, want exactly one fire on 2026-08-27", h.fires)
	}
}

func TestRunFailureStillAdvances(t *testing.T) {
	start := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	store := &fakeStore{last: "2026-08-28"}
	h := newHarness(t, start, store, 0, errors.New("pipeline blew up"), false)

	if err := h.sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if h.sched.LastFiredDate() != "2026-08-29" {
		t.Errorf("LastFiredDate = %q, want advanced despite run failure", h.sched.LastFiredDate())
	}
	if len(store.saved) != 1 || store.saved[0] != "2026-08-29" {
		t.Errorf("store.saved = %v, want one save of 2026-08-29", store.saved)
	}
}

func TestRunPanicRecoveredAndAdvances(t *testing.T) {
	start := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	h := newHarness(t, start, &fakeStore{last: "2026-08-28"}, 0, nil, true)

	if err := h.sched.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(h.fires) != 1 {
		t.Fatalf("fires = %v, want the panicking run to count as fired", h.fires)
	}
	if h.sched.LastFiredDate() != "2026-08-29" {
		t.Errorf("LastFiredDate = %q, want advanced after panic", h.sched.LastFiredDate())
	}
}

func TestRunCanceledBeforeCatchUpDoesNotFire(t *testing.T) {
	// Shutdown requested before the loop starts: even with a missed tick
	// pending, the scheduler must exit without running a pass.
	start := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	store := &fakeStore{last: "2026-08-28"}
	h := newHarness(t, start, store, 0, nil, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.sched.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if len(h.fires) != 0 {
		t.Errorf("fires = %v, want none after cancellation", h.fires)
	}
	if h.sched.LastFiredDate() != "2026-08-28" {
		t.Errorf("LastFiredDate = %q, want unchanged 2026-08-28", h.sched.LastFiredDate())
	}
	if len(store.saved) != 0 {
		t.Errorf("store.saved = %v, want no writes", store.saved)
	}
}

func TestRunIgnoresBadPersistedState(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
	}{
		{"load error", &fakeStore{loadErr: errors.New("disk gone")}},
		{"malformed date", &fakeStore{last: "not-a-date"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
			h := newHarness(t, start, tt.store, 0, nil, false)

			if err := h.sched.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			// Empty state plus a past target means one catch-up fire.
			if len(h.fires) != 1 {
				t.Errorf("fires = %v, want one catch-up fire from fresh state", h.fires)
			}
		})
	}
}

func TestNextFire(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"before target",
			time.Date(2026, 8, 29, 9, 30, 0, 0, loc),
			time.Date(2026, 8, 29, 13, 0, 0, 0, loc),
		},
		{
			"exactly at target rolls to tomorrow",
			time.Date(2026, 8, 29, 13, 0, 0, 0, loc),
			time.Date(2026, 8, 30, 13, 0, 0, 0, loc),
		},
		{
			"after target",
			time.Date(2026, 8, 29, 18, 0, 0, 0, loc),
			time.Date(2026, 8, 30, 13, 0, 0, 0, loc),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(tt.now, loc, 13, 0)
			if !got.Equal(tt.want) {
				t.Errorf("NextFire(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
