package helper

import (
	"sync"
	"time"
)

// dstCache remembers the last discovered DST boundary for a single
// *time.Location. It is process-wide and guarded by a mutex, taken both
// to consult it and to update it on a miss.
type dstCache struct {
	mu       sync.Mutex
	loc      *time.Location
	boundary Timestamp
	valid    bool
}

var globalDSTCache dstCache

func isDST(loc *time.Location, ts Timestamp) bool {
	t := time.Unix(ts.Seconds, 0).In(loc)
	_, stdOffset := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc).Zone()
	_, julOffset := time.Date(t.Year(), time.July, 1, 0, 0, 0, 0, loc).Zone()
	_, curOffset := t.Zone()
	baseline := stdOffset
	if julOffset < stdOffset {
		baseline = julOffset
	}
	return curOffset != baseline
}

// FindDSTChange returns the minute boundary inside [t0, t1] at which
// loc's isdst flag changes. The search assumes the transition lands on a
// zero-second boundary, per spec. If no transition is found, t1 is
// returned unchanged (callers only invoke this once isdst is already
// known to differ between t0 and t1).
func FindDSTChange(loc *time.Location, t0, t1 Timestamp) Timestamp {
	globalDSTCache.mu.Lock()
	if globalDSTCache.valid && globalDSTCache.loc == loc &&
		!globalDSTCache.boundary.Before(t0) && globalDSTCache.boundary.Before(t1) {
		cached := globalDSTCache.boundary
		globalDSTCache.mu.Unlock()
		return cached
	}
	globalDSTCache.mu.Unlock()

	lo, hi := t0.Seconds, t1.Seconds
	lo -= lo % 60
	hi -= hi % 60
	wantDST := isDST(loc, Timestamp{Seconds: hi})
	loDST := isDST(loc, Timestamp{Seconds: lo})
	if loDST == wantDST {
		return t1
	}

	for hi-lo > 60 {
		mid := lo + ((hi-lo)/120)*60
		if isDST(loc, Timestamp{Seconds: mid}) == loDST {
			lo = mid
		} else {
			hi = mid
		}
	}
	boundary := Timestamp{Seconds: hi}

	globalDSTCache.mu.Lock()
	globalDSTCache.loc = loc
	globalDSTCache.boundary = boundary
	globalDSTCache.valid = true
	globalDSTCache.mu.Unlock()

	return boundary
}

// IsDST reports whether loc observes daylight-saving time at ts.
func IsDST(loc *time.Location, ts Timestamp) bool {
	return isDST(loc, ts)
}
