// Package scheduler computes, for one item, the next wall-clock instant
// at which it must be polled (spec.md §4.3, component C3). The engine
// is a pure function of its inputs: no suspension points, no shared
// mutable state.
package scheduler

import (
	"time"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/helper"
)

// maxHorizon bounds how far forward the engine searches before giving
// up and returning helper.Sentinel (spec.md: "If no valid t exists
// within one year of now").
const maxHorizon = 366 * 24 * time.Hour

// NextCheck returns the smallest timestamp strictly after now at which
// the item must be evaluated. loc is the location next-check reasons
// about calendar fields in; callers pass the server/proxy's configured
// timezone (spec.md's "localtime").
func NextCheck(seed uint64, itemType api.ItemType, baseDelaySecs uint32, custom *api.CustomInterval, now helper.Timestamp, loc *time.Location) helper.Timestamp {
	if itemType == api.ItemTypeActiveAgent {
		if baseDelaySecs == 0 {
			return helper.Sentinel
		}
		return now.Add(time.Duration(baseDelaySecs) * time.Second)
	}

	var flex []api.FlexibleInterval
	var schedulers []api.SchedulerInterval
	if custom != nil {
		flex = custom.Flexible
		schedulers = custom.Scheduler
	}

	best := helper.Sentinel
	haveBest := false

	if simple, ok := simpleFlexCandidate(seed, baseDelaySecs, flex, now, loc); ok {
		best = simple
		haveBest = true
	}

	for _, si := range schedulers {
		if cand, ok := schedulerCandidate(si, now, loc); ok {
			cand = reconcileDST(si, now, cand, loc)
			// Scheduler wins ties over simple+flexible (spec.md §4.3 tie-break).
			if !haveBest || !best.Before(cand) {
				best = cand
				haveBest = true
			}
		}
	}

	if !haveBest {
		return helper.Sentinel
	}
	return best
}

// NextCheckForHost wraps NextCheck with the host-level poll-eligibility
// check: an item on a host in a data-suppressing maintenance window is
// skipped entirely rather than scheduled (spec.md §3: "During
// maintenance without data collection, scheduled evaluations skip the
// item until the window ends").
func NextCheckForHost(host api.Host, seed uint64, itemType api.ItemType, baseDelaySecs uint32, custom *api.CustomInterval, now helper.Timestamp, loc *time.Location) helper.Timestamp {
	if host.InMaintenanceSkip(now) {
		return helper.Sentinel
	}
	return NextCheck(seed, itemType, baseDelaySecs, custom, now, loc)
}

// reconcileDST re-evaluates the scheduler candidate from the DST
// boundary when isdst differs between now and the first candidate
// (spec.md §4.3 step 3).
func reconcileDST(si api.SchedulerInterval, now, candidate helper.Timestamp, loc *time.Location) helper.Timestamp {
	if loc == nil {
		return candidate
	}
	if helper.IsDST(loc, now) == helper.IsDST(loc, candidate) {
		return candidate
	}
	boundary := helper.FindDSTChange(loc, now, candidate)
	if reevaluated, ok := schedulerCandidate(si, boundary, loc); ok {
		return reevaluated
	}
	return candidate
}

func weekSecond(t time.Time) int {
	wd := isoWeekday(t)
	secOfDay := t.Hour()*3600 + t.Minute()*60 + t.Second()
	return (wd-1)*86400 + secOfDay
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday()) // Sunday = 0 .. Saturday = 6
	if wd == 0 {
		return 7
	}
	return wd
}

func periodRange(p api.TimePeriod) (int, int) {
	return (p.StartDay-1)*86400 + p.StartTime, (p.EndDay-1)*86400 + p.EndTime
}

// simpleFlexCandidate walks forward through flexible windows, applying
// the smallest matching delay (or the base delay where none match),
// bounded to one year of iteration (spec.md §4.3 algorithm step 2).
func simpleFlexCandidate(seed uint64, baseDelaySecs uint32, flex []api.FlexibleInterval, now helper.Timestamp, loc *time.Location) (helper.Timestamp, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t := now
	deadline := now.Add(maxHorizon)

	for i := 0; i < 100000 && t.Before(deadline); i++ {
		ws := weekSecond(t.Time().In(loc))

		effDelay := int64(baseDelaySecs)
		boundary := -1
		haveMatch := false

		for _, f := range flex {
			s, e := periodRange(f.Period)
			if ws >= s && ws < e {
				haveMatch = true
				if boundary == -1 || e < boundary {
					boundary = e
				}
			} else {
				if s > ws && (boundary == -1 || s < boundary) {
					boundary = s
				}
				if e > ws && (boundary == -1 || e < boundary) {
					boundary = e
				}
			}
		}
		if haveMatch {
			effDelay = minFlexDelay(flex, ws)
		}

		if effDelay <= 0 {
			if boundary == -1 {
				return helper.Timestamp{}, false
			}
			t = t.Add(time.Duration(boundary-ws) * time.Second)
			continue
		}

		candidateSecs := effDelay*(t.Seconds/effDelay) + int64(seed%uint64(effDelay))
		for candidateSecs <= t.Seconds {
			candidateSecs += effDelay
		}
		candidate := helper.Timestamp{Seconds: candidateSecs}

		if boundary == -1 {
			return candidate, true
		}
		windowEnd := t.Add(time.Duration(boundary-ws) * time.Second)
		if candidate.Before(windowEnd) {
			return candidate, true
		}
		t = windowEnd
	}
	return helper.Timestamp{}, false
}

func minFlexDelay(flex []api.FlexibleInterval, ws int) int64 {
	best := int64(-1)
	for _, f := range flex {
		s, e := periodRange(f.Period)
		if ws >= s && ws < e {
			if best == -1 || int64(f.Delay) < best {
				best = int64(f.Delay)
			}
		}
	}
	return best
}
