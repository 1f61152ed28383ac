package interval_test

import (
	"testing"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/client/interval"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleBase(t *testing.T) {
	p, err := interval.Parse("60")
	require.NoError(t, err)
	require.Equal(t, uint32(60), p.BaseDelaySecs)
	require.False(t, p.BaseIsMacro)

	p, err = interval.Parse("1h")
	require.NoError(t, err)
	require.Equal(t, uint32(3600), p.BaseDelaySecs)

	p, err = interval.Parse("1d")
	require.NoError(t, err)
	require.Equal(t, uint32(86400), p.BaseDelaySecs)
}

func TestParseBaseOutOfRangeWithoutCustom(t *testing.T) {
	_, err := interval.Parse("2d")
	require.Error(t, err)
	var ie *api.InvalidIntervalError
	require.ErrorAs(t, err, &ie)
	require.Equal(t, api.IntervalKindUpdate, ie.Kind)
}

func TestParseZeroBaseRequiresCustom(t *testing.T) {
	_, err := interval.Parse("0")
	require.Error(t, err)

	p, err := interval.Parse("0;h9m0")
	require.NoError(t, err)
	require.Equal(t, uint32(0), p.BaseDelaySecs)
}

func TestParseMacroBase(t *testing.T) {
	p, err := interval.Parse("{$MY.INTERVAL}")
	require.NoError(t, err)
	require.True(t, p.BaseIsMacro)
}

func TestParseFlexible(t *testing.T) {
	p, err := interval.Parse("60;300/1-7,00:00-24:00")
	require.NoError(t, err)
	require.Len(t, p.Custom.Flexible, 1)
	fi := p.Custom.Flexible[0]
	require.Equal(t, 300, fi.Delay)
	require.Equal(t, 1, fi.Period.StartDay)
	require.Equal(t, 7, fi.Period.EndDay)
	require.Equal(t, 0, fi.Period.StartTime)
	require.Equal(t, 86400, fi.Period.EndTime)
}

func TestParseFlexibleSingleDay(t *testing.T) {
	p, err := interval.Parse("60;120/3,08:30-17:00")
	require.NoError(t, err)
	fi := p.Custom.Flexible[0]
	require.Equal(t, 3, fi.Period.StartDay)
	require.Equal(t, 3, fi.Period.EndDay)
	require.Equal(t, 8*3600+30*60, fi.Period.StartTime)
}

func TestParseSchedulerDaily(t *testing.T) {
	p, err := interval.Parse("0;h9m0")
	require.NoError(t, err)
	require.Len(t, p.Custom.Scheduler, 1)
	si := p.Custom.Scheduler[0]
	require.Equal(t, []api.SchedulerFilter{{Start: 9, End: 9, Step: 1}}, si.Hour)
	require.Equal(t, []api.SchedulerFilter{{Start: 0, End: 0, Step: 1}}, si.Minute)
	require.Equal(t, api.GranularityMinute, si.Granularity)
}

func TestParseSchedulerWeekdayMonthdayExclusive(t *testing.T) {
	_, err := interval.Parse("0;wd1md1")
	require.Error(t, err)
}

func TestParseSchedulerLevelOrderEnforced(t *testing.T) {
	_, err := interval.Parse("0;m0h9") // hour after minute: wrong order
	require.Error(t, err)

	_, err = interval.Parse("0;h9h10") // redeclared level
	require.Error(t, err)
}

func TestParseSchedulerStepWithoutFromForbidden(t *testing.T) {
	_, err := interval.Parse("0;h/5")
	require.Error(t, err)
}

func TestParseSchedulerFilterStepExceedsSpan(t *testing.T) {
	_, err := interval.Parse("0;h0-5/10")
	require.Error(t, err)
}

func TestParseSchedulerWeekdayWidthCap(t *testing.T) {
	_, err := interval.Parse("0;wd12")
	require.Error(t, err)

	p, err := interval.Parse("0;wd1-5")
	require.NoError(t, err)
	require.Equal(t, []api.SchedulerFilter{{Start: 1, End: 5, Step: 1}}, p.Custom.Scheduler[0].Weekday)
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"60",
		"1h",
		"60;300/1-7,00:00-24:00",
		"0;h9m0",
		"0;wd1-5h8m30s0",
	}
	for _, in := range inputs {
		p, err := interval.Parse(in)
		require.NoError(t, err, in)

		formatted := interval.Format(p)
		reparsed, err := interval.Parse(formatted)
		require.NoError(t, err, formatted)
		require.Equal(t, p, reparsed, "round trip mismatch for %q -> %q", in, formatted)
	}
}
