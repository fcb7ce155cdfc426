package id

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(ms *int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(*ms) }
}

func TestNextIsStrictlyIncreasing(t *testing.T) {
	ms := int64(1000)
	g := NewGeneratorAt(fixedClock(&ms))

	a, b := g.Next(), g.Next()
	if a.String() >= b.String() {
		t.Fatalf("expected %s < %s", a, b)
	}

	ms = 900 // clock went backwards
	c := g.Next()
	if b.String() >= c.String() {
		t.Fatalf("expected %s < %s after clock regression", b, c)
	}
	if c.Time().UnixMilli() != 1000 {
		t.Fatalf("regressed id time = %d want 1000", c.Time().UnixMilli())
	}

	ms = 1001
	d := g.Next()
	if c.String() >= d.String() || d.Time().UnixMilli() != 1001 {
		t.Fatalf("unexpected id %s at %d", d, d.Time().UnixMilli())
	}
}

func TestParseRoundTrip(t *testing.T) {
	ms := int64(1_700_000_000_123)
	a := NewGeneratorAt(fixedClock(&ms)).Next()

	s := a.String()
	if len(s) != 32 {
		t.Fatalf("len = %d want 32", len(s))
	}
	back, err := Parse(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if back != a || back.Time().UnixMilli() != ms {
		t.Fatalf("round trip mismatch: %s vs %s", back, a)
	}
}

func TestParseRejects(t *testing.T) {
	for _, s := range []string{
		"",
		"abc",
		"zz000000000000000000000000000000",
		"0000018BCFE568000000000000000000",
	} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("Parse(%q) should fail", s)
		}
	}
}

func TestConcurrentNextUnique(t *testing.T) {
	g := NewGenerator()
	const n = 200
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[ID]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Next()
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %s", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()
}
