package clock_test

import (
	"testing"
	"time"

	"github.com/artpar/contentgate/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	c := clock.Real{}

	before := time.Now().Add(-clock.Precision)
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
	if got.Location() != time.UTC {
		t.Errorf("Now() location = %v, want UTC", got.Location())
	}
	if got.Nanosecond()%int(clock.Precision) != 0 {
		t.Errorf("Now() = %v, not truncated to milliseconds", got)
	}
}

func TestReal_Now_Successive(t *testing.T) {
	c := clock.Real{}

	t1 := c.Now()
	time.Sleep(2 * time.Millisecond)
	t2 := c.Now()

	if !t2.After(t1) {
		t.Error("successive calls should return increasing time")
	}
}

func TestFake_NewFake(t *testing.T) {
	fixedTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(fixedTime)

	got := c.Now()
	if !got.Equal(fixedTime) {
		t.Errorf("Now() = %v, want %v", got, fixedTime)
	}
}

func TestFake_Truncates(t *testing.T) {
	local := time.FixedZone("UTC+2", 2*60*60)
	c := clock.NewFake(time.Date(2024, 6, 15, 14, 0, 0, 1_234_567, local))

	want := time.Date(2024, 6, 15, 12, 0, 0, 1_000_000, time.UTC)
	got := c.Now()
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFake_Now_Stable(t *testing.T) {
	fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := clock.NewFake(fixedTime)

	for i := 0; i < 10; i++ {
		if got := c.Now(); !got.Equal(fixedTime) {
			t.Errorf("call %d: Now() = %v, want %v", i, got, fixedTime)
		}
	}
	if c.Calls() != 10 {
		t.Errorf("Calls() = %d, want 10", c.Calls())
	}
}

func TestFake_SetAndAdvance(t *testing.T) {
	c := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	c.Advance(90 * time.Minute)
	if want := time.Date(2024, 1, 1, 1, 30, 0, 0, time.UTC); !c.Now().Equal(want) {
		t.Errorf("after Advance Now() = %v, want %v", c.Now(), want)
	}

	newTime := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	c.Set(newTime)
	if !c.Now().Equal(newTime) {
		t.Errorf("after Set Now() = %v, want %v", c.Now(), newTime)
	}
}
