package interval

import (
	"fmt"
	"strings"

	"github.com/fleetwatch/core/api"
)

// Format renders p back into update-interval expression syntax. It is
// the inverse of Parse used by the round-trip property test (spec.md
// §8 property 3): Parse(Format(p)) must reproduce an equal Parsed.
func Format(p Parsed) string {
	var sb strings.Builder
	if p.BaseIsMacro {
		sb.WriteString("{$INTERVAL}")
	} else {
		fmt.Fprintf(&sb, "%d", p.BaseDelaySecs)
	}
	for _, f := range p.Custom.Flexible {
		sb.WriteString(";")
		fmt.Fprintf(&sb, "%d/%s", f.Delay, formatPeriod(f.Period))
	}
	for _, s := range p.Custom.Scheduler {
		sb.WriteString(";")
		sb.WriteString(formatScheduler(s))
	}
	return sb.String()
}

func formatPeriod(p api.TimePeriod) string {
	startH, startM := p.StartTime/3600, (p.StartTime%3600)/60
	endH, endM := p.EndTime/3600, (p.EndTime%3600)/60
	if p.StartDay == p.EndDay {
		return fmt.Sprintf("%d,%02d:%02d-%02d:%02d", p.StartDay, startH, startM, endH, endM)
	}
	return fmt.Sprintf("%d-%d,%02d:%02d-%02d:%02d", p.StartDay, p.EndDay, startH, startM, endH, endM)
}

func formatScheduler(s api.SchedulerInterval) string {
	var sb strings.Builder
	if s.Weekday != nil {
		sb.WriteString("wd")
		sb.WriteString(formatFilterChain(s.Weekday))
	}
	if s.MonthDay != nil {
		sb.WriteString("md")
		sb.WriteString(formatFilterChain(s.MonthDay))
	}
	if s.Hour != nil {
		sb.WriteString("h")
		sb.WriteString(formatFilterChain(s.Hour))
	}
	if s.Minute != nil {
		sb.WriteString("m")
		sb.WriteString(formatFilterChain(s.Minute))
	}
	if s.Second != nil {
		sb.WriteString("s")
		sb.WriteString(formatFilterChain(s.Second))
	}
	return sb.String()
}

func formatFilterChain(chain []api.SchedulerFilter) string {
	parts := make([]string, 0, len(chain))
	for _, f := range chain {
		if f.Start == f.End {
			if f.Step != 1 {
				parts = append(parts, fmt.Sprintf("%d/%d", f.Start, f.Step))
			} else {
				parts = append(parts, fmt.Sprintf("%d", f.Start))
			}
			continue
		}
		if f.Step != 1 {
			parts = append(parts, fmt.Sprintf("%d-%d/%d", f.Start, f.End, f.Step))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", f.Start, f.End))
		}
	}
	return strings.Join(parts, ",")
}
