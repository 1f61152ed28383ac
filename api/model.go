package api

import (
	"fmt"

	"github.com/fleetwatch/core/helper"
)

// Timestamp is the shared (seconds, nanoseconds) type from helper,
// re-exported so callers outside helper never need to import it
// directly for the data-model types below.
type Timestamp = helper.Timestamp

// TimePeriod is a recurring weekly window: ISO weekdays [StartDay,
// EndDay] and seconds-of-day [StartTime, EndTime). Spec.md §3 invariants
// (StartDay <= EndDay, StartTime < EndTime) are enforced by
// NewTimePeriod, not by the zero value.
type TimePeriod struct {
	StartDay  int // 1..7, Monday..Sunday
	EndDay    int
	StartTime int // seconds of day, 0..86400
	EndTime   int
}

// NewTimePeriod validates and constructs a TimePeriod.
func NewTimePeriod(startDay, endDay, startTime, endTime int) (TimePeriod, error) {
	if startDay < 1 || startDay > 7 || endDay < 1 || endDay > 7 {
		return TimePeriod{}, fmt.Errorf("weekday out of range")
	}
	if startDay > endDay {
		return TimePeriod{}, fmt.Errorf("start day %d after end day %d", startDay, endDay)
	}
	if startTime < 0 || startTime > 86400 || endTime < 0 || endTime > 86400 {
		return TimePeriod{}, fmt.Errorf("time of day out of range")
	}
	if startTime >= endTime {
		return TimePeriod{}, fmt.Errorf("start time %d not before end time %d", startTime, endTime)
	}
	return TimePeriod{StartDay: startDay, EndDay: endDay, StartTime: startTime, EndTime: endTime}, nil
}

// Matches reports whether the given ISO weekday and second-of-day fall
// inside the period.
func (p TimePeriod) Matches(weekday, secOfDay int) bool {
	return weekday >= p.StartDay && weekday <= p.EndDay &&
		secOfDay >= p.StartTime && secOfDay < p.EndTime
}

// FlexibleInterval overrides the base delay with Delay while the wall
// clock falls inside Period.
type FlexibleInterval struct {
	Period TimePeriod
	Delay  int // seconds, >= 0
}

// SchedulerFilter is one "from[-to][/step]" atom. A chain of filters
// expresses a union: a candidate v matches the chain if any filter has
// Start <= v <= End and (v - Start) % Step == 0.
type SchedulerFilter struct {
	Start int
	End   int
	Step  int // >= 1
}

// NewSchedulerFilter validates and constructs a SchedulerFilter.
func NewSchedulerFilter(start, end, step int) (SchedulerFilter, error) {
	if step < 1 {
		return SchedulerFilter{}, fmt.Errorf("step must be >= 1")
	}
	if start > end {
		return SchedulerFilter{}, fmt.Errorf("start %d after end %d", start, end)
	}
	if step > end-start && end != start {
		return SchedulerFilter{}, fmt.Errorf("step %d exceeds span %d", step, end-start)
	}
	return SchedulerFilter{Start: start, End: end, Step: step}, nil
}

// MatchesFilterChain reports whether v satisfies any filter in the chain. An empty
// chain matches everything (the level is unconstrained).
func MatchesFilterChain(chain []SchedulerFilter, v int) bool {
	if len(chain) == 0 {
		return true
	}
	for _, f := range chain {
		if v >= f.Start && v <= f.End && (v-f.Start)%f.Step == 0 {
			return true
		}
	}
	return false
}

// NextMatch returns the smallest value >= from that satisfies the
// filter chain, and whether one exists within [from, maxValue].
func NextMatch(chain []SchedulerFilter, from, maxValue int) (int, bool) {
	if len(chain) == 0 {
		if from > maxValue {
			return 0, false
		}
		return from, true
	}
	best := -1
	for _, f := range chain {
		start := f.Start
		if start < from {
			// Advance start to the first filter position >= from that
			// respects the step.
			if f.Step > 0 {
				remainder := (from - f.Start) % f.Step
				if remainder != 0 {
					start = from + (f.Step - remainder)
				} else {
					start = from
				}
			} else {
				start = from
			}
		}
		if start < from {
			start = from
		}
		if start > f.End {
			continue
		}
		if best == -1 || start < best {
			best = start
		}
	}
	if best == -1 || best > maxValue {
		return 0, false
	}
	return best, true
}

// Granularity is the coarsest calendar field a SchedulerInterval
// constrains.
type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityHour
	GranularityMinute
	GranularitySecond
)

// SchedulerInterval is one cron-like entry: filter chains per calendar
// field plus the coarsest granularity actually specified. MonthDay and
// Weekday are mutually exclusive (spec.md §3).
type SchedulerInterval struct {
	Granularity Granularity
	MonthDay    []SchedulerFilter
	Weekday     []SchedulerFilter
	Hour        []SchedulerFilter
	Minute      []SchedulerFilter
	Second      []SchedulerFilter
}

// CustomInterval bundles the flexible-delay overrides and the
// cron-like scheduler entries parsed from one update-interval
// expression.
type CustomInterval struct {
	Flexible  []FlexibleInterval
	Scheduler []SchedulerInterval
}

// ItemType enumerates item collection methods relevant to scheduling
// and validation.
type ItemType int

const (
	ItemTypeZabbixAgent ItemType = iota
	ItemTypeActiveAgent
	ItemTypeSNMP
	ItemTypeTrapper
	ItemTypeAggregate
	ItemTypeCalculated
	ItemTypeInternal
)

// ProcessedOnServer reports whether items of this type are always
// evaluated on the server, even when their host belongs to a proxy
// (spec.md §4.6: "further filter out items whose type is processed on
// the server even when the host belongs to a proxy").
func (t ItemType) ProcessedOnServer() bool {
	switch t {
	case ItemTypeAggregate, ItemTypeCalculated, ItemTypeInternal:
		return true
	default:
		return false
	}
}

// ItemStatus and ItemState per spec.md §3.
type ItemStatus int

const (
	ItemStatusActive ItemStatus = iota
	ItemStatusDisabled
)

type ItemState int

const (
	ItemStateNormal ItemState = iota
	ItemStateUnsupported
)

// Item is an observable data source owned by a host.
type Item struct {
	ID             uint64
	HostID         uint64
	Type           ItemType
	Status         ItemStatus
	State          ItemState
	ValueType      ValueType
	Key            string
	BaseDelaySecs  uint32
	CustomInterval *CustomInterval
	TrapperHosts   string // comma-separated allowlist for sender_item_validator
}

// HostStatus and MaintenanceType per spec.md §3.
type HostStatus int

const (
	HostStatusMonitored HostStatus = iota
	HostStatusNotMonitored
)

type MaintenanceStatus int

const (
	MaintenanceOff MaintenanceStatus = iota
	MaintenanceOn
)

type MaintenanceType int

const (
	MaintenanceWithData MaintenanceType = iota
	MaintenanceNoData
)

// TLSAccept is a bitmask of security modes a host/proxy will accept.
type TLSAccept uint8

const (
	TLSAcceptUnencrypted TLSAccept = 1 << iota
	TLSAcceptCertificate
	TLSAcceptPSK
)

// AvailabilityState is one interface's last-known reachability.
type AvailabilityState int

const (
	AvailabilityUnknown AvailabilityState = iota
	AvailabilityUp
	AvailabilityDown
)

// Host is a monitored device owning many items.
type Host struct {
	ID                uint64
	Status            HostStatus
	ProxyID           uint64 // 0 = not proxied, polled directly by the server
	MaintenanceStatus MaintenanceStatus
	MaintenanceType   MaintenanceType
	MaintenanceFrom   Timestamp

	TLSAccept      TLSAccept
	TLSIssuer      string
	TLSSubject     string
	TLSPSKIdentity string

	// Availability mirrors the four per-interface reachability flags
	// (agent/SNMP/IPMI/JMX) a proxy owns the runtime truth for; see
	// AvailabilityGeneration below.
	Available       AvailabilityState
	SNMPAvailable   AvailabilityState
	IPMIAvailable   AvailabilityState
	JMXAvailable    AvailabilityState

	// AvailabilityGeneration is a per-host counter for the availability
	// resync. Nothing in this module increments or reads it: the
	// configmirror applier republishes on every availability mismatch
	// regardless of its value.
	AvailabilityGeneration uint64
}

// InMaintenanceSkip reports whether, at ts, the host is in a
// data-suppressing maintenance window (spec.md §3: "During maintenance
// without data collection, scheduled evaluations skip the item").
func (h Host) InMaintenanceSkip(ts Timestamp) bool {
	return h.MaintenanceStatus == MaintenanceOn && h.MaintenanceType == MaintenanceNoData && !ts.Before(h.MaintenanceFrom)
}

// RecordFlags mark out-of-band conditions on a history record.
type RecordFlags uint8

const (
	RecordFlagHasMeta RecordFlags = 1 << iota
	RecordFlagNoValue
)

// HistoryRecord is one polled datum queued on the proxy for delivery.
type HistoryRecord struct {
	ID          uint64
	ItemID      uint64
	Timestamp   Timestamp
	Value       Value
	Flags       RecordFlags
	LastLogSize uint64
	MTime       int64
}

// RecordID implements recordbuf.Identifiable.
func (r HistoryRecord) RecordID() uint64 { return r.ID }

// DiscoveryRecord is one network-discovery result queued on the proxy.
type DiscoveryRecord struct {
	ID        uint64
	DRuleID   uint64
	DCheckID  uint64
	Timestamp Timestamp
	IP        string
	DNS       string
	Port      int
	Value     string
	Status    int
}

// RecordID implements recordbuf.Identifiable.
func (r DiscoveryRecord) RecordID() uint64 { return r.ID }

// AutoregRecord is one autoregistration event queued on the proxy.
type AutoregRecord struct {
	ID        uint64
	Host      string
	Timestamp Timestamp
	IP        string
	DNS       string
	Port      int
	HostMeta  string
}

// RecordID implements recordbuf.Identifiable.
func (r AutoregRecord) RecordID() uint64 { return r.ID }

// RecordTableName enumerates the three proxy-side record buffers C4
// drains (spec.md §4.4), distinct from the configuration TableName set
// C6 applies.
type RecordTableName string

const (
	RecordTableHistory  RecordTableName = "history"
	RecordTableDiscovery RecordTableName = "proxy_dhistory"
	RecordTableAutoreg  RecordTableName = "proxy_autoreg_host"
)

// ProxyState tracks the server's view of one proxy connection.
type ProxyState struct {
	ID                  uint64
	Version             string // empty if never reported
	LastAccess          Timestamp
	AutoCompress        bool
	LastVersionErrorTime Timestamp
}

// DataSession is a per-(owner, token) dedup session (C5).
type DataSession struct {
	OwnerID     uint64
	Token       string // 32 lowercase hex chars
	LastValueID uint64
}

// TableName enumerates the configuration tables synced C6 moves, in
// apply dependency order (spec.md §4.6).
type TableName string

const (
	TableGlobalMacro     TableName = "globalmacro"
	TableHosts           TableName = "hosts"
	TableInterface       TableName = "interface"
	TableHostsTemplates  TableName = "hosts_templates"
	TableHostMacro       TableName = "hostmacro"
	TableItems           TableName = "items"
	TableDRules          TableName = "drules"
	TableDChecks         TableName = "dchecks"
	TableRegexps         TableName = "regexps"
	TableExpressions     TableName = "expressions"
	TableHstGrp          TableName = "hstgrp"
	TableConfig          TableName = "config"
	TableHTTPTest        TableName = "httptest"
	TableHTTPTestItem    TableName = "httptestitem"
	TableHTTPTestField   TableName = "httptest_field"
	TableHTTPStep        TableName = "httpstep"
	TableHTTPStepItem    TableName = "httpstepitem"
	TableHTTPStepField   TableName = "httpstep_field"
)

// TableApplyOrder is the dependency order configuration sync applies
// tables in (spec.md §4.6).
var TableApplyOrder = []TableName{
	TableGlobalMacro, TableHosts, TableInterface, TableHostsTemplates,
	TableHostMacro, TableItems, TableDRules, TableDChecks, TableRegexps,
	TableExpressions, TableHstGrp, TableConfig, TableHTTPTest,
	TableHTTPTestItem, TableHTTPTestField, TableHTTPStep, TableHTTPStepItem,
	TableHTTPStepField,
}

// UniqueIndexedTables lists tables requiring two-phase staging for a
// non-primary unique column (spec.md §4.6 step 3).
var UniqueIndexedTables = map[TableName]string{
	TableGlobalMacro:    "macro",
	TableHosts:          "host",
	TableHostMacro:      "macro",
	TableItems:          "key_",
	TableDRules:         "name",
	TableRegexps:        "name",
	TableHTTPTest:       "name",
	TableHostsTemplates: "templateid", // self-referential
}

// Row is one record of a configuration table: primary key plus an
// ordered field map. Field presence vs explicit null is distinguished
// by FieldValue.Null; an absent key means "equal to default, omitted to
// save bytes" per spec.md §4.4's per-table schema note.
type Row struct {
	ID     uint64
	Fields map[string]FieldValue
}

// FieldValue holds one column's value plus whether it was wire-null.
type FieldValue struct {
	Raw  string
	Null bool
}

// TablePayload is the server-produced, proxy-consumed wire shape for
// one configuration table (spec.md §4.6: "<table> : { fields: [...],
// data: [[id, v1, v2, ...], ...] }"), rows in ID order.
type TablePayload struct {
	Table  TableName
	Fields []string
	Rows   []Row
}

// ConfigDelta is the insert/update/delete plan for one table.
type ConfigDelta struct {
	Table   TableName
	Inserts []Row
	Updates []RowUpdate
	Deletes []uint64
}

// RowUpdate names the ID and the subset of fields that changed.
type RowUpdate struct {
	ID     uint64
	Fields map[string]FieldValue
}
