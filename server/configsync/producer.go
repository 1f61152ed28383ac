// Package configsync builds the server-side half of configuration
// sync: one TablePayload per table, rows filtered to what a given
// proxy owns and encoded in ID order (spec.md §4.6, component C6).
package configsync

import (
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"
	"github.com/mitchellh/copystructure"

	"github.com/fleetwatch/core/api"
)

// TableSource answers, for one table, which rows a proxy's sync
// payload should carry. The membership predicate (which hosts/items/
// checks belong to this proxy) is caller-owned per spec.md §4.6 —
// it varies per table and lives against whatever store backs it.
type TableSource interface {
	Fields() []string
	RowsForProxy(proxyID uint64) ([]api.Row, error)
}

// ItemSource is a TableSource specialization for the items table: on
// top of the normal proxy-membership filter, rows belonging to
// always-server-processed item types are dropped (spec.md §4.6).
type ItemSource interface {
	TableSource
	ItemType(rowID uint64) api.ItemType
}

// Producer builds per-table sync payloads from a registry of sources.
type Producer struct {
	sources map[api.TableName]TableSource
	log     hclog.Logger
}

// NewProducer builds a Producer over the given per-table sources.
func NewProducer(sources map[api.TableName]TableSource, log hclog.Logger) *Producer {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Producer{sources: sources, log: log.Named("configsync")}
}

// BuildPayload produces the wire payload for one table, rows in ID
// order, per spec.md §4.6's producer contract.
func (p *Producer) BuildPayload(table api.TableName, proxyID uint64) (api.TablePayload, error) {
	src, ok := p.sources[table]
	if !ok {
		return api.TablePayload{}, &unknownTableError{Table: table}
	}

	rows, err := src.RowsForProxy(proxyID)
	if err != nil {
		return api.TablePayload{}, err
	}

	// RowsForProxy may hand back rows aliasing the source's own
	// in-memory state (read under a lock that's released well before
	// this payload is serialized and sent); deep-copy them so later
	// mutation on either side can't leak across the boundary.
	rows, err = deepCopyRows(rows)
	if err != nil {
		return api.TablePayload{}, err
	}

	if table == api.TableItems {
		if items, ok := src.(ItemSource); ok {
			rows = filterServerProcessedItems(rows, items)
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	metrics.IncrCounter([]string{"configsync", "produce", string(table)}, float32(len(rows)))
	p.log.Debug("built table payload", "table", string(table), "proxy_id", proxyID, "rows", len(rows))

	return api.TablePayload{Table: table, Fields: src.Fields(), Rows: rows}, nil
}

// BuildAll produces every table's payload in spec.md §4.6's apply
// dependency order, so a caller can stream them in the order the
// proxy will apply them.
func (p *Producer) BuildAll(proxyID uint64) ([]api.TablePayload, error) {
	out := make([]api.TablePayload, 0, len(api.TableApplyOrder))
	for _, table := range api.TableApplyOrder {
		if _, ok := p.sources[table]; !ok {
			continue
		}
		payload, err := p.BuildPayload(table, proxyID)
		if err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, nil
}

func filterServerProcessedItems(rows []api.Row, items ItemSource) []api.Row {
	out := rows[:0:0]
	for _, r := range rows {
		if items.ItemType(r.ID).ProcessedOnServer() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func deepCopyRows(rows []api.Row) ([]api.Row, error) {
	copied, err := copystructure.Copy(rows)
	if err != nil {
		return nil, err
	}
	return copied.([]api.Row), nil
}

type unknownTableError struct {
	Table api.TableName
}

func (e *unknownTableError) Error() string {
	return "configsync: no source registered for table " + string(e.Table)
}
