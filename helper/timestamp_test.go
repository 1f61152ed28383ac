package helper_test

import (
	"testing"
	"time"

	"github.com/fleetwatch/core/helper"
	"github.com/shoenig/test/must"
)

func TestTimestampOrdering(t *testing.T) {
	a := helper.Timestamp{Seconds: 100, Nanoseconds: 5}
	b := helper.Timestamp{Seconds: 100, Nanoseconds: 6}
	must.True(t, a.Before(b))
	must.True(t, b.After(a))
	must.False(t, a.Before(a))
}

func TestTimestampAddSub(t *testing.T) {
	a := helper.Timestamp{Seconds: 100, Nanoseconds: 500_000_000}
	b := a.Add(750 * time.Millisecond)
	must.Eq(t, helper.Timestamp{Seconds: 101, Nanoseconds: 250_000_000}, b)
	must.Eq(t, 750*time.Millisecond, b.Sub(a))
}

func TestNowMonotone(t *testing.T) {
	var prev helper.Timestamp
	for i := 0; i < 1000; i++ {
		cur := helper.Now()
		must.True(t, cur.After(prev))
		prev = cur
	}
}
