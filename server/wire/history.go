package wire

import (
	"encoding/json"
	"fmt"

	"github.com/fleetwatch/core/api"
)

// historyWireItem is the per-record shape inside an envelope's "history
// data" section. The wire always carries value as a string (spec.md §9:
// "the wire always carries strings; the parser is the point where the
// variant is chosen"); DecodeHistoryData is that point.
type historyWireItem struct {
	ID          uint64 `json:"id"`
	ItemID      uint64 `json:"itemid"`
	Clock       int64  `json:"clock"`
	NS          int32  `json:"ns"`
	Value       string `json:"value"`
	Unsupported string `json:"unsupported,omitempty"`
	Flags       uint8  `json:"flags,omitempty"`
	LastLogSize uint64 `json:"lastlogsize,omitempty"`
	MTime       int64  `json:"mtime,omitempty"`
}

// ValueTypeLookup resolves an item's declared value_type, the input
// api.ParseValue needs to pick api.Value's variant for that item's
// records.
type ValueTypeLookup func(itemID uint64) (api.ValueType, bool)

// DecodeHistoryData parses an envelope's "history data" section into
// []api.HistoryRecord, calling api.ParseValue per record with the value
// type declared by that record's item. A record flagged
// RecordFlagNoValue (collection failed, Unsupported carries the reason)
// bypasses ParseValue entirely, matching api.Value.IsUnsupported.
func DecodeHistoryData(raw json.RawMessage, valueType ValueTypeLookup) ([]api.HistoryRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []historyWireItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode history data: %w", err)
	}

	out := make([]api.HistoryRecord, 0, len(items))
	for _, it := range items {
		rec := api.HistoryRecord{
			ID:     it.ID,
			ItemID: it.ItemID,
			Timestamp: api.Timestamp{
				Seconds:     it.Clock,
				Nanoseconds: it.NS,
			},
			Flags:       api.RecordFlags(it.Flags),
			LastLogSize: it.LastLogSize,
			MTime:       it.MTime,
		}

		if rec.Flags&api.RecordFlagNoValue != 0 {
			rec.Value = api.UnsupportedValue(it.Unsupported)
			out = append(out, rec)
			continue
		}

		vt, ok := valueType(it.ItemID)
		if !ok {
			return nil, fmt.Errorf("decode history data: unknown item %d for record %d", it.ItemID, it.ID)
		}
		val, err := api.ParseValue(vt, it.Value)
		if err != nil {
			return nil, fmt.Errorf("decode history data: record %d: %w", it.ID, err)
		}
		rec.Value = val
		out = append(out, rec)
	}
	return out, nil
}
