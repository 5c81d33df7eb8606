package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mbd888/trustboard/internal/circuitbreaker"
)

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestRegistryOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("oracle", func(_ context.Context) Status {
		return Status{Name: "oracle", Healthy: true}
	})
	r.Register("fetchlog", func(_ context.Context) Status {
		return Status{Healthy: false, Detail: "connection refused"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with unhealthy checker should report unhealthy")
	}
	if statuses[1].Name != "fetchlog" {
		t.Fatalf("expected registered name to fill a blank status name, got %q", statuses[1].Name)
	}
	if statuses[1].Detail != "connection refused" {
		t.Fatalf("expected detail 'connection refused', got %q", statuses[1].Detail)
	}
}

func TestReport_Degraded(t *testing.T) {
	r := NewRegistry()
	r.Register("fetchlog", PingCheck("fetchlog", func(context.Context) error { return errors.New("down") }))

	rep := r.Report(context.Background())
	if rep.Status != "degraded" {
		t.Fatalf("expected degraded, got %s", rep.Status)
	}
	if rep.CheckedAt.IsZero() {
		t.Fatal("expected checked_at to be set")
	}
}

func TestBreakerCheck(t *testing.T) {
	b := circuitbreaker.New(1, time.Hour)
	check := BreakerCheck("oracle", b)

	if s := check(context.Background()); !s.Healthy {
		t.Fatalf("fresh breaker should be healthy: %+v", s)
	}

	b.RecordFailure("/api/v1/agents/top")
	s := check(context.Background())
	if s.Healthy {
		t.Fatal("open circuit should be unhealthy")
	}
	if s.Detail != "circuit open: /api/v1/agents/top" {
		t.Fatalf("unexpected detail %q", s.Detail)
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("checker", func(_ context.Context) Status {
				return Status{Name: "checker", Healthy: true}
			})
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}
