package scheduler

import (
	"time"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/helper"
)

var zeroChain = []api.SchedulerFilter{{Start: 0, End: 0, Step: 1}}

// effectiveChain returns the filter chain to apply for one of
// hour/minute/second: the explicit chain if set, a zero-only chain if
// the level is finer than the interval's granularity and therefore
// defaults to zero (spec.md §3: "if granularity is minute-level,
// unspecified finer filters match only zero"), or nil (free, matches
// everything) if it is coarser than or equal to the granularity.
func effectiveChain(chain []api.SchedulerFilter, rank int, granularity api.Granularity) []api.SchedulerFilter {
	if chain != nil {
		return chain
	}
	if rank > int(granularity) {
		return zeroChain
	}
	return nil
}

// schedulerCandidate finds the smallest timestamp strictly after now
// that satisfies si's filter chains, searching top-down: day, then
// hour, then minute, then second (spec.md §4.3 algorithm step 2,
// "Scheduler candidate").
func schedulerCandidate(si api.SchedulerInterval, now helper.Timestamp, loc *time.Location) (helper.Timestamp, bool) {
	if loc == nil {
		loc = time.UTC
	}
	hourChain := effectiveChain(si.Hour, int(api.GranularityHour), si.Granularity)
	minuteChain := effectiveChain(si.Minute, int(api.GranularityMinute), si.Granularity)
	secondChain := effectiveChain(si.Second, int(api.GranularitySecond), si.Granularity)

	t := now.Add(time.Second).Time().In(loc)
	deadline := now.Add(maxHorizon).Time().In(loc)

	for i := 0; i < 5_000_000; i++ {
		if !t.Before(deadline) {
			return helper.Timestamp{}, false
		}
		if !matchesDay(si, t) {
			t = startOfNextDay(t, loc)
			continue
		}

		h := t.Hour()
		nh, ok := api.NextMatch(hourChain, h, 23)
		if !ok {
			t = startOfNextDay(t, loc)
			continue
		}
		if nh != h {
			t = time.Date(t.Year(), t.Month(), t.Day(), nh, 0, 0, 0, loc)
			continue
		}

		m := t.Minute()
		nm, ok := api.NextMatch(minuteChain, m, 59)
		if !ok {
			t = startOfNextHour(t, loc)
			continue
		}
		if nm != m {
			t = time.Date(t.Year(), t.Month(), t.Day(), h, nm, 0, 0, loc)
			continue
		}

		s := t.Second()
		ns, ok := api.NextMatch(secondChain, s, 59)
		if !ok {
			t = startOfNextMinute(t, loc)
			continue
		}
		if ns != s {
			t = time.Date(t.Year(), t.Month(), t.Day(), h, m, ns, 0, loc)
			continue
		}

		return helper.FromTime(t), true
	}
	return helper.Timestamp{}, false
}

func matchesDay(si api.SchedulerInterval, t time.Time) bool {
	if len(si.Weekday) > 0 {
		return api.MatchesFilterChain(si.Weekday, isoWeekday(t))
	}
	if len(si.MonthDay) > 0 {
		return api.MatchesFilterChain(si.MonthDay, t.Day())
	}
	return true
}

func startOfNextDay(t time.Time, loc *time.Location) time.Time {
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc)
}

func startOfNextHour(t time.Time, loc *time.Location) time.Time {
	next := t.Add(time.Hour)
	return time.Date(next.Year(), next.Month(), next.Day(), next.Hour(), 0, 0, 0, loc)
}

func startOfNextMinute(t time.Time, loc *time.Location) time.Time {
	next := t.Add(time.Minute)
	return time.Date(next.Year(), next.Month(), next.Day(), next.Hour(), next.Minute(), 0, 0, loc)
}
