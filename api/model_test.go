package api_test

import (
	"testing"

	"github.com/fleetwatch/core/api"
	"github.com/stretchr/testify/require"
)

func TestTimePeriodMatches(t *testing.T) {
	p, err := api.NewTimePeriod(1, 5, 9*3600, 17*3600)
	require.NoError(t, err)

	require.True(t, p.Matches(3, 10*3600))
	require.False(t, p.Matches(6, 10*3600)) // Saturday, out of day range
	require.False(t, p.Matches(3, 8*3600))  // before start time
	require.False(t, p.Matches(3, 17*3600)) // end time exclusive
}

func TestTimePeriodInvariants(t *testing.T) {
	_, err := api.NewTimePeriod(5, 1, 0, 100)
	require.Error(t, err)

	_, err = api.NewTimePeriod(1, 2, 100, 100)
	require.Error(t, err)
}

func TestSchedulerFilterChain(t *testing.T) {
	f1, err := api.NewSchedulerFilter(0, 10, 5)
	require.NoError(t, err)
	f2, err := api.NewSchedulerFilter(20, 20, 1)
	require.NoError(t, err)
	chain := []api.SchedulerFilter{f1, f2}

	require.True(t, api.MatchesFilterChain(chain, 0))
	require.True(t, api.MatchesFilterChain(chain, 5))
	require.True(t, api.MatchesFilterChain(chain, 10))
	require.False(t, api.MatchesFilterChain(chain, 7))
	require.True(t, api.MatchesFilterChain(chain, 20))
	require.False(t, api.MatchesFilterChain(chain, 21))
}

func TestSchedulerFilterInvalid(t *testing.T) {
	_, err := api.NewSchedulerFilter(10, 0, 1)
	require.Error(t, err)
	_, err = api.NewSchedulerFilter(0, 5, 10)
	require.Error(t, err)
	_, err = api.NewSchedulerFilter(0, 5, 0)
	require.Error(t, err)
}

func TestNextMatch(t *testing.T) {
	f, err := api.NewSchedulerFilter(0, 50, 10)
	require.NoError(t, err)
	chain := []api.SchedulerFilter{f}

	v, ok := api.NextMatch(chain, 3, 59)
	require.True(t, ok)
	require.Equal(t, 10, v)

	v, ok = api.NextMatch(chain, 50, 59)
	require.True(t, ok)
	require.Equal(t, 50, v)

	_, ok = api.NextMatch(chain, 51, 59)
	require.False(t, ok)
}

func TestNextMatchEmptyChain(t *testing.T) {
	v, ok := api.NextMatch(nil, 7, 59)
	require.True(t, ok)
	require.Equal(t, 7, v)
}
