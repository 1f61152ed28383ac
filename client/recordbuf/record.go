package recordbuf

import "github.com/fleetwatch/core/api"

// Identifiable is the constraint record types must satisfy to flow
// through the batcher: a monotone primary key the buffer orders and
// watermarks on.
type Identifiable interface {
	RecordID() uint64
}

// Source is the proxy-local store's read side for one record table
// (history, discovery, or autoregistration). It is intentionally
// minimal: the storage backend itself is out of core scope (spec.md
// §1), the batcher only needs ordered range reads.
type Source[T Identifiable] interface {
	// FetchSince returns up to limit rows with ID > lastSentID, ordered
	// by ID ascending.
	FetchSince(lastSentID uint64, limit int) ([]T, error)
	// CountSince returns the number of rows with ID > lastSentID,
	// backing pending_count (spec.md §4.4).
	CountSince(lastSentID uint64) (int, error)
}

// WatermarkStore persists the last-sent-id watermark per table
// (spec.md §6 "ids(table_name, field_name, nextid)").
type WatermarkStore interface {
	Get(table api.RecordTableName) (uint64, error)
	Set(table api.RecordTableName, id uint64) error
}

func recordID[T Identifiable](r T) uint64 { return r.RecordID() }
