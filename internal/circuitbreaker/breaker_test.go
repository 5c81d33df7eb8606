package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	b := New(threshold, cooldown)
	b.now = clock.Now
	return b, clock
}

const stats = "/api/v1/network/stats"

func TestBreaker_AllowWhenClosed(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	if !b.Allow(stats) {
		t.Fatal("expected closed circuit to allow")
	}
}

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)

	b.RecordFailure(stats)
	b.RecordFailure(stats)
	if !b.Allow(stats) {
		t.Fatal("should still allow before threshold")
	}

	b.RecordFailure(stats)
	if b.Allow(stats) {
		t.Fatal("should be open after 3 failures")
	}
	if b.State(stats) != StateOpen {
		t.Fatalf("expected StateOpen, got %v", b.State(stats))
	}
}

func TestBreaker_HalfOpenTrialCall(t *testing.T) {
	b, clock := newTestBreaker(2, time.Second)

	b.RecordFailure(stats)
	b.RecordFailure(stats)
	if b.Allow(stats) {
		t.Fatal("should be open")
	}

	clock.Advance(time.Second)
	if !b.Allow(stats) {
		t.Fatal("should allow a trial call in half-open")
	}
	if b.State(stats) != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %v", b.State(stats))
	}
	if b.Allow(stats) {
		t.Fatal("should reject second request in half-open")
	}
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	b, clock := newTestBreaker(2, time.Second)

	b.RecordFailure(stats)
	b.RecordFailure(stats)
	clock.Advance(2 * time.Second)
	b.Allow(stats)

	b.RecordSuccess(stats)
	if b.State(stats) != StateClosed {
		t.Fatalf("expected StateClosed after success, got %v", b.State(stats))
	}
	if !b.Allow(stats) {
		t.Fatal("should allow after recovery")
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(2, time.Second)

	b.RecordFailure(stats)
	b.RecordFailure(stats)
	clock.Advance(2 * time.Second)
	b.Allow(stats)

	b.RecordFailure(stats)
	if b.State(stats) != StateOpen {
		t.Fatalf("expected StateOpen after failed trial call, got %v", b.State(stats))
	}
}

func TestBreaker_EndpointsIndependent(t *testing.T) {
	b, _ := newTestBreaker(1, time.Minute)

	b.RecordFailure(stats)
	if b.Allow(stats) {
		t.Fatal("stats circuit should be open")
	}
	if !b.Allow("/api/v1/agents/top") {
		t.Fatal("listing circuit should be unaffected")
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure(stats)
	b.RecordFailure(stats)
	b.RecordSuccess(stats)
	b.RecordFailure(stats)
	b.RecordFailure(stats)
	if b.State(stats) != StateClosed {
		t.Fatal("failures should have been reset by the success")
	}
}

func TestBreaker_Snapshot(t *testing.T) {
	b, _ := newTestBreaker(1, time.Minute)
	b.RecordFailure("/b")
	b.RecordFailure("/a")

	snap := b.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap))
	}
	if snap[0].Endpoint != "/a" || snap[0].State != "open" || snap[0].Failures != 1 {
		t.Errorf("unexpected first entry: %+v", snap[0])
	}
}

func transitionCount(t *testing.T, endpoint, from, to string) float64 {
	t.Helper()
	c, err := transitionsTotal.GetMetricWithLabelValues(endpoint, from, to)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return m.Counter.GetValue()
}

func TestBreaker_TransitionMetric(t *testing.T) {
	b, _ := newTestBreaker(1, time.Minute)
	before := transitionCount(t, "/metric-transitions", "closed", "open")

	b.RecordFailure("/metric-transitions")

	if got := transitionCount(t, "/metric-transitions", "closed", "open") - before; got != 1 {
		t.Errorf("expected 1 transition, got %f", got)
	}
}

func TestBreaker_ReleaseReturnsHalfOpenToOpen(t *testing.T) {
	b, clock := newTestBreaker(1, time.Second)

	b.RecordFailure(stats)
	clock.Advance(time.Second)
	if !b.Allow(stats) {
		t.Fatal("should admit the half-open trial")
	}

	b.Release(stats)
	if b.State(stats) != StateOpen {
		t.Fatalf("expected StateOpen after release, got %v", b.State(stats))
	}
	if !b.Allow(stats) {
		t.Fatal("cooldown already elapsed: a new trial should be admitted")
	}
	if b.State(stats) != StateHalfOpen {
		t.Fatalf("expected StateHalfOpen, got %v", b.State(stats))
	}
}

func TestBreaker_ReleaseIgnoresOtherStates(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.Release("/never-seen")
	b.RecordFailure(stats)
	b.Release(stats)
	if b.State(stats) != StateClosed {
		t.Fatalf("closed circuit must stay closed, got %v", b.State(stats))
	}
}

func TestStateString(t *testing.T) {
	if StateHalfOpen.String() != "half_open" || State(42).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
}
