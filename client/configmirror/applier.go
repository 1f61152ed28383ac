// Package configmirror is the proxy-side applier for configuration
// sync: it diffs a server-produced TablePayload against the local
// mirror and writes the resulting insert/update/delete plan back
// through a transactional store (spec.md §4.6, component C6).
package configmirror

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-multierror"

	"github.com/fleetwatch/core/api"
)

// neverOverwrite lists fields the proxy runtime owns and the applier
// must never overwrite from a server payload (spec.md §4.6 step 4).
var neverOverwrite = map[api.TableName]map[string]bool{
	api.TableItems: {"lastlogsize": true, "mtime": true},
}

// availabilityFields are hosts columns where a server/proxy mismatch
// triggers a republish instead of an overwrite (spec.md §4.6 step 4;
// SPEC_FULL.md's AvailabilityGeneration supplement).
var availabilityFields = []string{"available", "snmp_available", "ipmi_available", "jmx_available"}

// Txn is the transactional write surface the applier needs from the
// proxy's local store. One Txn spans one table's apply; the caller
// commits or rolls it back as a unit (spec.md §4.6: "in a single
// transaction ... on any parse or apply failure, the whole sync rolls
// back").
type Txn interface {
	// AllRows returns every row currently held locally for the table,
	// keyed by primary key (spec.md §4.6 applier step 1).
	AllRows() (map[uint64]api.Row, error)
	Insert(row api.Row) error
	Update(update api.RowUpdate) error
	Delete(id uint64) error
	// Restage moves column to a disambiguated placeholder value on the
	// row with the given id, phase one of the two-phase unique-index
	// staging (spec.md §4.6 step 3).
	Restage(id uint64, column, placeholder string) error
	Commit() error
	Rollback() error
}

// Store opens one Txn per table apply.
type Store interface {
	Begin(table api.TableName) (Txn, error)
}

// Result summarizes one table's apply.
type Result struct {
	Table     api.TableName
	Inserted  int
	Updated   int
	Deleted   int
	Republish []uint64 // host IDs whose local availability must be re-sent (step 4)
}

// Applier drives the proxy side of configuration sync.
type Applier struct {
	store Store
	log   hclog.Logger
}

// NewApplier builds an Applier writing through store.
func NewApplier(store Store, log hclog.Logger) *Applier {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Applier{store: store, log: log.Named("configmirror")}
}

// Apply writes payload's rows against the local mirror for its table,
// in one transaction, rolling back on any failure (spec.md §4.6).
func (a *Applier) Apply(payload api.TablePayload) (Result, error) {
	result := Result{Table: payload.Table}

	txn, err := a.store.Begin(payload.Table)
	if err != nil {
		return result, err
	}

	if err := a.applyWithin(txn, payload, &result); err != nil {
		if rbErr := txn.Rollback(); rbErr != nil {
			err = multierror.Append(err, rbErr)
		}
		a.log.Error("config sync apply failed, rolled back", "table", string(payload.Table), "error", err)
		return Result{Table: payload.Table}, err
	}

	if err := txn.Commit(); err != nil {
		return result, err
	}

	metrics.IncrCounter([]string{"configmirror", "inserted", string(payload.Table)}, float32(result.Inserted))
	metrics.IncrCounter([]string{"configmirror", "updated", string(payload.Table)}, float32(result.Updated))
	metrics.IncrCounter([]string{"configmirror", "deleted", string(payload.Table)}, float32(result.Deleted))
	return result, nil
}

func (a *Applier) applyWithin(txn Txn, payload api.TablePayload, result *Result) error {
	local, err := txn.AllRows()
	if err != nil {
		return err
	}

	uniqueCol, hasUnique := api.UniqueIndexedTables[payload.Table]
	if hasUnique {
		if err := restageConflicts(txn, payload, local, uniqueCol); err != nil {
			return err
		}
	}

	payloadIDs := make(map[uint64]bool, len(payload.Rows))
	skip := neverOverwrite[payload.Table]

	for _, row := range payload.Rows {
		payloadIDs[row.ID] = true
		existing, ok := local[row.ID]
		if !ok {
			if err := txn.Insert(row); err != nil {
				return err
			}
			result.Inserted++
			continue
		}

		fields, republish := diffFields(payload.Table, existing, row, skip)
		result.Republish = append(result.Republish, republish...)
		if len(fields) == 0 {
			continue
		}
		if err := txn.Update(api.RowUpdate{ID: row.ID, Fields: fields}); err != nil {
			return err
		}
		result.Updated++
	}

	ids := make([]uint64, 0, len(local))
	for id := range local {
		if !payloadIDs[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := txn.Delete(id); err != nil {
			return err
		}
		result.Deleted++
	}

	return nil
}

// restageConflicts implements spec.md §4.6 step 3: before writing any
// row, any local row whose unique-column value collides with a value
// the payload is about to assign elsewhere is moved to a disambiguated
// placeholder first.
func restageConflicts(txn Txn, payload api.TablePayload, local map[uint64]api.Row, column string) error {
	localByValue := make(map[string]uint64, len(local))
	for id, row := range local {
		if fv, ok := row.Fields[column]; ok && !fv.Null {
			localByValue[fv.Raw] = id
		}
	}

	for _, row := range payload.Rows {
		fv, ok := row.Fields[column]
		if !ok || fv.Null {
			continue
		}
		holder, exists := localByValue[fv.Raw]
		if !exists || holder == row.ID {
			continue
		}
		placeholder := fmt.Sprintf("__restage_%d_%d__", holder, row.ID)
		if err := txn.Restage(holder, column, placeholder); err != nil {
			return err
		}
	}
	return nil
}

// diffFields computes the fields of target that differ from existing,
// honoring never-overwrite fields and diverting availability-field
// mismatches into a republish signal instead of an update
// (spec.md §4.6 step 4).
func diffFields(table api.TableName, existing, target api.Row, skip map[string]bool) (map[string]api.FieldValue, []uint64) {
	fields := make(map[string]api.FieldValue)
	var republish []uint64

	isAvailability := table == api.TableHosts
	avail := make(map[string]bool, len(availabilityFields))
	if isAvailability {
		for _, f := range availabilityFields {
			avail[f] = true
		}
	}

	for col, want := range target.Fields {
		if skip[col] {
			continue
		}
		have, existed := existing.Fields[col]
		if existed && have == want {
			continue
		}
		if isAvailability && avail[col] {
			if existed && have != want {
				republish = append(republish, target.ID)
			}
			continue
		}
		fields[col] = want
	}
	return fields, republish
}
