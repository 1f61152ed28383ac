package api

import "fmt"

// ValueType is an item's declared value kind, which the wire decoder
// consults to choose a Value variant (spec.md §9: "the wire always
// carries strings; the parser is the point where the variant is
// chosen").
type ValueType int

const (
	ValueTypeFloat ValueType = iota
	ValueTypeUint64
	ValueTypeString
	ValueTypeLog
	ValueTypeText
)

// LogEntry is the structured payload of a log-type history record.
type LogEntry struct {
	Timestamp int64
	Source    string
	Severity  int
	EventID   int64
	Text      string
}

// Value is a tagged union over the wire-carried history value. Exactly
// one of the typed fields is meaningful, selected by Kind; Unsupported
// holds a human-readable reason when the item's collection failed and no
// value exists at all.
type Value struct {
	Kind        ValueType
	Uint64      uint64
	Float       float64
	Str         string
	Log         LogEntry
	Unsupported string
}

// IsUnsupported reports whether the value represents a failed
// collection rather than real data.
func (v Value) IsUnsupported() bool {
	return v.Unsupported != ""
}

// ParseValue coerces the wire string s into a Value according to vt. An
// item already marked unsupported bypasses coercion entirely.
func ParseValue(vt ValueType, s string) (Value, error) {
	switch vt {
	case ValueTypeUint64:
		var u uint64
		if _, err := fmt.Sscanf(s, "%d", &u); err != nil {
			return Value{}, fmt.Errorf("parse uint64 value %q: %w", s, err)
		}
		return Value{Kind: ValueTypeUint64, Uint64: u}, nil
	case ValueTypeFloat:
		var f float64
		if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
			return Value{}, fmt.Errorf("parse float value %q: %w", s, err)
		}
		return Value{Kind: ValueTypeFloat, Float: f}, nil
	case ValueTypeString, ValueTypeText:
		return Value{Kind: vt, Str: s}, nil
	case ValueTypeLog:
		return Value{Kind: ValueTypeLog, Log: LogEntry{Text: s}}, nil
	default:
		return Value{}, fmt.Errorf("unknown value type %d", vt)
	}
}

// UnsupportedValue builds a Value carrying a collection-failure reason.
func UnsupportedValue(reason string) Value {
	return Value{Unsupported: reason}
}
