// Package recordbuf accumulates proxy-side history, discovery, and
// autoregistration rows and drains them in ID-ordered batches bounded
// by both a record count and a JSON byte budget (spec.md §4.4,
// component C4).
package recordbuf

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"

	"github.com/fleetwatch/core/api"
)

// gapRetryPause is how long the batcher waits before re-reading a
// table once after observing a gap in the ID sequence, giving a
// concurrent writer time to commit its row (spec.md §4.4).
const gapRetryPause = 100 * time.Millisecond

// Batcher drains one record table in ID order, tracking the
// last-sent-id watermark in wm and reporting counters through the
// go-metrics sink configured process-wide.
type Batcher[T Identifiable] struct {
	table    api.RecordTableName
	src      Source[T]
	wm       WatermarkStore
	log      hclog.Logger
	sizeOf   func(T) int
	sleep    func(time.Duration)
	validate func(T) error
}

// SetValidator installs a per-record check FetchBatch runs before
// including a row in a batch. A row failing it is logged and skipped
// rather than delivered, but still counts toward the high-water mark
// advance (spec.md §7: "malformed records within a batch are logged
// and the record is skipped; batch-level dedup watermark still
// advances past them").
func (b *Batcher[T]) SetValidator(validate func(T) error) {
	b.validate = validate
}

// NewBatcher builds a Batcher for table, reading rows from src and
// persisting its watermark in wm. sizeOf estimates the wire-encoded
// size of one record, used to enforce jsonBudgetBytes in FetchBatch.
func NewBatcher[T Identifiable](table api.RecordTableName, src Source[T], wm WatermarkStore, sizeOf func(T) int, log hclog.Logger) *Batcher[T] {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Batcher[T]{
		table:  table,
		src:    src,
		wm:     wm,
		log:    log.Named("recordbuf").With("table", string(table)),
		sizeOf: sizeOf,
		sleep:  time.Sleep,
	}
}

// SetSleepFunc overrides the pause FetchBatch uses for its gap retry,
// for tests that would otherwise wait on a real 100ms timer.
func (b *Batcher[T]) SetSleepFunc(sleep func(time.Duration)) {
	b.sleep = sleep
}

// FetchBatch reads rows with id > lastSentID ordered by id, up to
// maxRecords and jsonBudgetBytes, and returns the batch together with
// the high-water id to advance to and whether more rows remain beyond
// the batch. A detected gap in the ID sequence triggers one retry
// after gapRetryPause; if the gap persists the batcher proceeds with
// it rather than blocking indefinitely (spec.md §4.4).
func (b *Batcher[T]) FetchBatch(lastSentID uint64, maxRecords int, jsonBudgetBytes int) ([]T, uint64, bool, error) {
	rows, err := b.src.FetchSince(lastSentID, maxRecords)
	if err != nil {
		return nil, lastSentID, false, err
	}

	if hasGap(rows, lastSentID) {
		b.sleep(gapRetryPause)
		retried, err := b.src.FetchSince(lastSentID, maxRecords)
		if err != nil {
			return nil, lastSentID, false, err
		}
		rows = retried
		if hasGap(rows, lastSentID) {
			b.log.Debug("proceeding with id gap after one retry", "last_sent_id", lastSentID)
		}
	}

	batch := make([]T, 0, len(rows))
	budget := jsonBudgetBytes
	more := false
	highWater := lastSentID

	for i, r := range rows {
		if b.validate != nil {
			if err := b.validate(r); err != nil {
				b.log.Warn("skipping malformed record", "id", recordID(r), "error", err)
				highWater = recordID(r)
				continue
			}
		}

		size := b.sizeOf(r)
		if jsonBudgetBytes > 0 && budget-size < 0 && len(batch) > 0 {
			more = true
			break
		}
		batch = append(batch, r)
		budget -= size
		highWater = recordID(r)
		if i == len(rows)-1 && len(rows) == maxRecords {
			more = true
		}
	}

	metrics.IncrCounter([]string{"recordbuf", "fetch_batch", string(b.table)}, float32(len(batch)))
	return batch, highWater, more, nil
}

// Advance persists newHighWater as the table's last-sent-id watermark,
// called once the caller has confirmed the batch was delivered.
func (b *Batcher[T]) Advance(newHighWater uint64) error {
	if err := b.wm.Set(b.table, newHighWater); err != nil {
		return err
	}
	metrics.SetGauge([]string{"recordbuf", "watermark", string(b.table)}, float32(newHighWater))
	return nil
}

// PendingCount reports how many rows remain undelivered past the
// table's current watermark.
func (b *Batcher[T]) PendingCount() (int, error) {
	last, err := b.wm.Get(b.table)
	if err != nil {
		return 0, err
	}
	return b.src.CountSince(last)
}

func hasGap[T Identifiable](rows []T, lastSentID uint64) bool {
	if len(rows) == 0 {
		return false
	}
	if lastSentID != 0 && recordID(rows[0]) != lastSentID+1 {
		return true
	}
	for i := 1; i < len(rows); i++ {
		if recordID(rows[i]) != recordID(rows[i-1])+1 {
			return true
		}
	}
	return false
}
