package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-contact-cache/circuitbreaker"
)

func TestCollector_CacheCounters(t *testing.T) {
	c := NewCollector("test")

	c.CacheHit("contact")
	c.CacheHit("contact")
	c.CacheMiss("contact")
	c.Fallback("contact", ReasonBreakerOpen)
	c.Fallback("contact", ReasonCacheError)
	c.Fallback("contact", ReasonCacheError)
	c.WriteBackFailure("contact")
	c.SourceDuration("contact", 5*time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{name: "hits", got: testutil.ToFloat64(c.CacheHits.WithLabelValues("contact")), want: 2},
		{name: "misses", got: testutil.ToFloat64(c.CacheMisses.WithLabelValues("contact")), want: 1},
		{name: "fallback open", got: testutil.ToFloat64(c.Fallbacks.WithLabelValues("contact", ReasonBreakerOpen)), want: 1},
		{name: "fallback error", got: testutil.ToFloat64(c.Fallbacks.WithLabelValues("contact", ReasonCacheError)), want: 2},
		{name: "write back failures", got: testutil.ToFloat64(c.WriteBackFailures.WithLabelValues("contact")), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}

	if n := testutil.CollectAndCount(c.SourceLatency); n != 1 {
		t.Errorf("expected one latency series, got %d", n)
	}
}

func TestCollector_IsolatedRegistries(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")

	a.CacheHit("contact")

	if got := testutil.ToFloat64(b.CacheHits.WithLabelValues("contact")); got != 0 {
		t.Fatalf("collectors must not share state, got %v", got)
	}

	families, err := a.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestBreakerHook(t *testing.T) {
	c := NewCollector("test")
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	br, err := circuitbreaker.New(
		circuitbreaker.Config{Name: "contacts", FailureThreshold: 1, Cooldown: time.Second},
		circuitbreaker.WithClock(func() time.Time { return now }),
		BreakerHook(c),
	)
	if err != nil {
		t.Fatalf("circuitbreaker.New() failed: %v", err)
	}

	_ = br.Execute(context.Background(), func(context.Context) error { return errors.New("down") })

	if got := testutil.ToFloat64(c.BreakerState.WithLabelValues("contacts")); got != float64(circuitbreaker.Open) {
		t.Errorf("expected open state gauge, got %v", got)
	}
	if got := testutil.ToFloat64(c.BreakerTransitions.WithLabelValues("contacts", "closed", "open")); got != 1 {
		t.Errorf("expected one closed->open transition, got %v", got)
	}
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.CacheHit("x")
	r.CacheMiss("x")
	r.Fallback("x", ReasonCacheError)
	r.WriteBackFailure("x")
	r.SourceDuration("x", time.Second)
	r.BreakerTransition("x", circuitbreaker.Closed, circuitbreaker.Open)
}
