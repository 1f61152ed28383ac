// Package interval parses the update-interval expression language
// (spec.md §4.2): a base delay, optional flexible-interval overrides,
// and optional cron-like scheduler entries, separated by semicolons.
package interval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fleetwatch/core/api"
)

// Parsed is the outcome of parsing one update-interval expression.
type Parsed struct {
	BaseDelaySecs uint32
	BaseIsMacro   bool
	Custom        api.CustomInterval
}

var macroRe = regexp.MustCompile(`^\{\$[A-Za-z0-9_.]+(:[^}]*)?\}$`)

// Parse parses a full update-interval expression. A non-macro base
// delay must lie in [1 second, 1 day] when no custom interval is
// present; with at least one custom interval any base, including zero,
// is accepted (spec.md §4.2).
func Parse(expr string) (Parsed, error) {
	parts := strings.Split(expr, ";")
	if len(parts) == 0 || parts[0] == "" {
		return Parsed{}, api.NewInvalidInterval(api.IntervalKindUpdate, expr)
	}

	base, isMacro, err := parseBase(parts[0])
	if err != nil {
		return Parsed{}, err
	}

	var custom api.CustomInterval
	for _, clause := range parts[1:] {
		if clause == "" {
			continue
		}
		if looksLikeFlexible(clause) {
			flex, err := parseFlexible(clause)
			if err != nil {
				return Parsed{}, err
			}
			custom.Flexible = append(custom.Flexible, flex)
			continue
		}
		sched, err := parseScheduler(clause)
		if err != nil {
			return Parsed{}, err
		}
		custom.Scheduler = append(custom.Scheduler, sched)
	}

	hasCustom := len(custom.Flexible) > 0 || len(custom.Scheduler) > 0
	if !isMacro {
		if base == 0 && !hasCustom {
			return Parsed{}, api.NewInvalidInterval(api.IntervalKindUpdate, parts[0])
		}
		if !hasCustom && (base < 1 || base > 86400) {
			return Parsed{}, api.NewInvalidInterval(api.IntervalKindUpdate, parts[0])
		}
	}

	return Parsed{BaseDelaySecs: base, BaseIsMacro: isMacro, Custom: custom}, nil
}

func parseBase(s string) (uint32, bool, error) {
	if macroRe.MatchString(s) {
		return 0, true, nil
	}
	secs, err := parseDuration(s)
	if err != nil {
		return 0, false, api.NewInvalidInterval(api.IntervalKindUpdate, s)
	}
	return secs, false, nil
}

var durationRe = regexp.MustCompile(`^(\d+)([smhdw]?)$`)

func parseDuration(s string) (uint32, error) {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("malformed duration %q", s)
	}
	n, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return 0, err
	}
	mult := uint64(1)
	switch m[2] {
	case "", "s":
		mult = 1
	case "m":
		mult = 60
	case "h":
		mult = 3600
	case "d":
		mult = 86400
	case "w":
		mult = 7 * 86400
	}
	total := n * mult
	if total > 0xFFFFFFFF {
		return 0, fmt.Errorf("duration %q overflows", s)
	}
	return uint32(total), nil
}

func looksLikeFlexible(clause string) bool {
	slash := strings.Index(clause, "/")
	if slash < 0 {
		return false
	}
	rhs := clause[slash+1:]
	return strings.Contains(rhs, ",") && strings.Contains(rhs, ":")
}

func parseFlexible(clause string) (api.FlexibleInterval, error) {
	slash := strings.Index(clause, "/")
	if slash < 0 {
		return api.FlexibleInterval{}, api.NewInvalidInterval(api.IntervalKindFlexible, clause)
	}
	delaySecs, err := parseDuration(clause[:slash])
	if err != nil {
		return api.FlexibleInterval{}, api.NewInvalidInterval(api.IntervalKindFlexible, clause)
	}
	period, err := parseTimePeriod(clause[slash+1:])
	if err != nil {
		return api.FlexibleInterval{}, api.NewInvalidInterval(api.IntervalKindFlexible, clause)
	}
	return api.FlexibleInterval{Period: period, Delay: int(delaySecs)}, nil
}

var periodRe = regexp.MustCompile(`^([1-7])(?:-([1-7]))?,(\d{2}):(\d{2})-(\d{2}):(\d{2})$`)

func parseTimePeriod(s string) (api.TimePeriod, error) {
	m := periodRe.FindStringSubmatch(s)
	if m == nil {
		return api.TimePeriod{}, fmt.Errorf("malformed time period %q", s)
	}
	startDay, _ := strconv.Atoi(m[1])
	endDay := startDay
	if m[2] != "" {
		endDay, _ = strconv.Atoi(m[2])
	}
	startSec, err := timeOfDaySeconds(m[3], m[4])
	if err != nil {
		return api.TimePeriod{}, err
	}
	endSec, err := timeOfDaySeconds(m[5], m[6])
	if err != nil {
		return api.TimePeriod{}, err
	}
	return api.NewTimePeriod(startDay, endDay, startSec, endSec)
}

func timeOfDaySeconds(hh, mm string) (int, error) {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	if h == 24 {
		if m != 0 {
			return 0, fmt.Errorf("24:%s is not a valid time of day", mm)
		}
		return 86400, nil
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %s:%s out of range", hh, mm)
	}
	return h*3600 + m*60, nil
}

// The rank constants order calendar levels from coarsest to finest; day-level
// (weekday or month-day) share rank 0 since they're mutually exclusive,
// not sequential.
const (
	rankDay = iota
	rankHour
	rankMinute
	rankSecond
)

func parseScheduler(clause string) (api.SchedulerInterval, error) {
	var si api.SchedulerInterval
	lastRank := -1
	pos := 0
	for pos < len(clause) {
		token, width := nextLevelToken(clause[pos:])
		if token == "" {
			return api.SchedulerInterval{}, api.NewInvalidInterval(api.IntervalKindScheduling, clause)
		}
		pos += width

		body, consumed := scanFilterBody(clause[pos:])
		if body == "" {
			return api.SchedulerInterval{}, api.NewInvalidInterval(api.IntervalKindScheduling, clause)
		}
		pos += consumed

		rank, err := rankFor(token)
		if err != nil {
			return api.SchedulerInterval{}, api.NewInvalidInterval(api.IntervalKindScheduling, clause)
		}

		if rank <= lastRank {
			return api.SchedulerInterval{}, api.NewInvalidInterval(api.IntervalKindScheduling, clause)
		}
		if (token == "wd" || token == "md") && (si.Weekday != nil || si.MonthDay != nil) {
			// md/wd are mutually exclusive within one interval.
			return api.SchedulerInterval{}, api.NewInvalidInterval(api.IntervalKindScheduling, clause)
		}

		maxWidth := 2
		if token == "wd" {
			maxWidth = 1
		}
		chain, err := parseFilterChain(body, maxWidth)
		if err != nil {
			return api.SchedulerInterval{}, api.NewInvalidInterval(api.IntervalKindScheduling, clause)
		}

		switch token {
		case "wd":
			si.Weekday = chain
			si.Granularity = api.GranularityDay
		case "md":
			si.MonthDay = chain
			si.Granularity = api.GranularityDay
		case "h":
			si.Hour = chain
			si.Granularity = api.GranularityHour
		case "m":
			si.Minute = chain
			si.Granularity = api.GranularityMinute
		case "s":
			si.Second = chain
			si.Granularity = api.GranularitySecond
		}
		lastRank = rank
	}
	if lastRank == -1 {
		return api.SchedulerInterval{}, api.NewInvalidInterval(api.IntervalKindScheduling, clause)
	}
	return si, nil
}

func rankFor(token string) (int, error) {
	switch token {
	case "wd", "md":
		return rankDay, nil
	case "h":
		return rankHour, nil
	case "m":
		return rankMinute, nil
	case "s":
		return rankSecond, nil
	}
	return 0, fmt.Errorf("unknown level token %q", token)
}

func nextLevelToken(s string) (string, int) {
	if strings.HasPrefix(s, "wd") {
		return "wd", 2
	}
	if strings.HasPrefix(s, "md") {
		return "md", 2
	}
	if len(s) == 0 {
		return "", 0
	}
	switch s[0] {
	case 'h', 'm', 's':
		return string(s[0]), 1
	}
	return "", 0
}

// scanFilterBody consumes characters up to (but not including) the next
// level-token letter, returning the filter body and bytes consumed.
func scanFilterBody(s string) (string, int) {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= '0' && c <= '9') || c == ',' || c == '-' || c == '/' {
			i++
			continue
		}
		break
	}
	return s[:i], i
}

var partRe = regexp.MustCompile(`^(\d+)(?:-(\d+))?(?:/(\d+))?$`)

func parseFilterChain(body string, maxWidth int) ([]api.SchedulerFilter, error) {
	var chain []api.SchedulerFilter
	for _, part := range strings.Split(body, ",") {
		if part == "" {
			return nil, fmt.Errorf("empty filter part")
		}
		m := partRe.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("malformed filter part %q", part)
		}
		fromStr := m[1]
		if len(fromStr) > maxWidth {
			return nil, fmt.Errorf("filter value %q exceeds width %d", fromStr, maxWidth)
		}
		from, _ := strconv.Atoi(fromStr)
		to := from
		if m[2] != "" {
			if len(m[2]) > maxWidth {
				return nil, fmt.Errorf("filter value %q exceeds width %d", m[2], maxWidth)
			}
			to, _ = strconv.Atoi(m[2])
		}
		step := 1
		if m[3] != "" {
			step, _ = strconv.Atoi(m[3])
		}
		f, err := api.NewSchedulerFilter(from, to, step)
		if err != nil {
			return nil, err
		}
		chain = append(chain, f)
	}
	return chain, nil
}
