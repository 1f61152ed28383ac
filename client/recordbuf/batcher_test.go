package recordbuf_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/client/recordbuf"
)

type fakeSource struct {
	rows []api.HistoryRecord
}

func (f *fakeSource) FetchSince(lastSentID uint64, limit int) ([]api.HistoryRecord, error) {
	var out []api.HistoryRecord
	for _, r := range f.rows {
		if r.ID > lastSentID {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeSource) CountSince(lastSentID uint64) (int, error) {
	n := 0
	for _, r := range f.rows {
		if r.ID > lastSentID {
			n++
		}
	}
	return n, nil
}

type fakeWatermarks struct{ m map[api.RecordTableName]uint64 }

func newFakeWatermarks() *fakeWatermarks { return &fakeWatermarks{m: map[api.RecordTableName]uint64{}} }

func (f *fakeWatermarks) Get(table api.RecordTableName) (uint64, error) { return f.m[table], nil }
func (f *fakeWatermarks) Set(table api.RecordTableName, id uint64) error {
	f.m[table] = id
	return nil
}

func sizeOfHistory(api.HistoryRecord) int { return 100 }

func rows(ids ...uint64) []api.HistoryRecord {
	out := make([]api.HistoryRecord, len(ids))
	for i, id := range ids {
		out[i] = api.HistoryRecord{ID: id}
	}
	return out
}

// TestFetchBatchOrderedAndBounded covers spec.md §8 testable property 4:
// every batch is strictly ID-ordered and every ID exceeds last_sent_id.
func TestFetchBatchOrderedAndBounded(t *testing.T) {
	src := &fakeSource{rows: rows(1, 2, 3, 4, 5)}
	wm := newFakeWatermarks()
	b := recordbuf.NewBatcher(api.RecordTableHistory, src, wm, sizeOfHistory, nil)

	batch, highWater, more, err := b.FetchBatch(2, 2, 0)
	require.NoError(t, err)
	require.Equal(t, rows(3, 4), batch)
	require.Equal(t, uint64(4), highWater)
	require.True(t, more)

	require.NoError(t, b.Advance(highWater))
	got, err := wm.Get(api.RecordTableHistory)
	require.NoError(t, err)
	require.Equal(t, uint64(4), got)
}

func TestFetchBatchRespectsByteBudget(t *testing.T) {
	src := &fakeSource{rows: rows(1, 2, 3, 4)}
	wm := newFakeWatermarks()
	b := recordbuf.NewBatcher(api.RecordTableHistory, src, wm, sizeOfHistory, nil)

	batch, highWater, more, err := b.FetchBatch(0, 10, 250)
	require.NoError(t, err)
	require.Equal(t, rows(1, 2), batch)
	require.Equal(t, uint64(2), highWater)
	require.True(t, more)
}

func TestFetchBatchNoMoreWhenExhausted(t *testing.T) {
	src := &fakeSource{rows: rows(1, 2)}
	wm := newFakeWatermarks()
	b := recordbuf.NewBatcher(api.RecordTableHistory, src, wm, sizeOfHistory, nil)

	batch, highWater, more, err := b.FetchBatch(0, 10, 0)
	require.NoError(t, err)
	require.Equal(t, rows(1, 2), batch)
	require.Equal(t, uint64(2), highWater)
	require.False(t, more)
}

func TestFetchBatchGapRetriesOnce(t *testing.T) {
	src := &fakeSource{rows: rows(1, 3, 4)} // gap: id 2 never showed up
	wm := newFakeWatermarks()
	b := recordbuf.NewBatcher(api.RecordTableHistory, src, wm, sizeOfHistory, nil)
	b.SetSleepFunc(func(time.Duration) {})

	batch, highWater, _, err := b.FetchBatch(0, 10, 0)
	require.NoError(t, err)
	require.Equal(t, rows(1, 3, 4), batch) // proceeds with the gap after one retry
	require.Equal(t, uint64(4), highWater)
}

type fakeDiscoverySource struct {
	rows []api.DiscoveryRecord
}

func (f *fakeDiscoverySource) FetchSince(lastSentID uint64, limit int) ([]api.DiscoveryRecord, error) {
	var out []api.DiscoveryRecord
	for _, r := range f.rows {
		if r.ID > lastSentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeDiscoverySource) CountSince(lastSentID uint64) (int, error) { return 0, nil }

func TestFetchBatchSkipsRecordsFailingValidatorButAdvancesWatermark(t *testing.T) {
	src := &fakeDiscoverySource{rows: []api.DiscoveryRecord{
		{ID: 1, DNS: "host1.example.com"},
		{ID: 2, DNS: invalidDNSName},
		{ID: 3, DNS: ""},
	}}
	wm := newFakeWatermarks()
	b := recordbuf.NewBatcher(api.RecordTableDiscovery, src, wm, func(api.DiscoveryRecord) int { return 50 }, nil)
	b.SetValidator(func(r api.DiscoveryRecord) error {
		if !recordbuf.ValidDNSName(r.DNS) {
			return errInvalidDNS
		}
		return nil
	})

	batch, highWater, _, err := b.FetchBatch(0, 10, 0)
	require.NoError(t, err)
	require.Len(t, batch, 2) // record 2 skipped
	require.Equal(t, uint64(1), batch[0].ID)
	require.Equal(t, uint64(3), batch[1].ID)
	require.Equal(t, uint64(3), highWater) // watermark still advances past the skipped record
}

var errInvalidDNS = &dnsError{}

type dnsError struct{}

func (*dnsError) Error() string { return "invalid dns name" }

// invalidDNSName has a label over the 63-byte limit, which
// miekg/dns.IsDomainName rejects regardless of character content.
const invalidDNSName = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.example.com"

func TestValidDNSName(t *testing.T) {
	require.True(t, recordbuf.ValidDNSName(""))
	require.True(t, recordbuf.ValidDNSName("host1.example.com"))
	require.False(t, recordbuf.ValidDNSName(invalidDNSName))
}

func TestPendingCount(t *testing.T) {
	src := &fakeSource{rows: rows(1, 2, 3)}
	wm := newFakeWatermarks()
	wm.m[api.RecordTableHistory] = 1
	b := recordbuf.NewBatcher(api.RecordTableHistory, src, wm, sizeOfHistory, nil)

	n, err := b.PendingCount()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
