package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetwatch/core/helper"
	"github.com/fleetwatch/core/server/wire"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	e := wire.Envelope{Request: wire.RequestProxyData, Host: "proxy1"}
	e.SetTimestamp(helper.Timestamp{Seconds: 1700000000, Nanoseconds: 5})
	e.SetUpload(true)

	b, err := wire.Encode(e)
	require.NoError(t, err)
	require.Contains(t, string(b), `"request":"proxy data"`)
	require.Contains(t, string(b), `"upload":1`)

	got, err := wire.Decode(b)
	require.NoError(t, err)
	require.Equal(t, e.Request, got.Request)
	require.Equal(t, helper.Timestamp{Seconds: 1700000000, Nanoseconds: 5}, got.Timestamp())
	require.True(t, got.NeedsUpload())
}

func TestBudgetSplitsAcrossKindsInBatchMode(t *testing.T) {
	b := wire.NewBudget(10000, 2000)
	require.Equal(t, 8000, b.SingleKindLimit())
	require.Equal(t, 4000, b.BatchKindLimit())
}

func TestBudgetNeverNegative(t *testing.T) {
	b := wire.NewBudget(100, 2000)
	require.Equal(t, 0, b.SingleKindLimit())
	require.Equal(t, 0, b.BatchKindLimit())
}

func TestVersionGateAcceptsEqualOrLower(t *testing.T) {
	g, err := wire.NewVersionGate("6.4.2", nil)
	require.NoError(t, err)

	require.NoError(t, g.Check("6.4.2", helper.Timestamp{Seconds: 1700000000}))
	require.NoError(t, g.Check("6.4.0", helper.Timestamp{Seconds: 1700000001}))
}

func TestVersionGateRejectsNewerProxy(t *testing.T) {
	g, err := wire.NewVersionGate("6.4.2", nil)
	require.NoError(t, err)

	err = g.Check("6.5.0", helper.Timestamp{Seconds: 1700000000})
	require.Error(t, err)
}
