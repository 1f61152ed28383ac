package configsync_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/server/configsync"
)

type fakeHostSource struct{}

func (fakeHostSource) Fields() []string { return []string{"host"} }
func (fakeHostSource) RowsForProxy(proxyID uint64) ([]api.Row, error) {
	return []api.Row{
		{ID: 3, Fields: map[string]api.FieldValue{"host": {Raw: "c"}}},
		{ID: 1, Fields: map[string]api.FieldValue{"host": {Raw: "a"}}},
		{ID: 2, Fields: map[string]api.FieldValue{"host": {Raw: "b"}}},
	}, nil
}

type fakeItemSource struct {
	types map[uint64]api.ItemType
}

func (fakeItemSource) Fields() []string { return []string{"key_"} }
func (f fakeItemSource) RowsForProxy(proxyID uint64) ([]api.Row, error) {
	return []api.Row{
		{ID: 1, Fields: map[string]api.FieldValue{"key_": {Raw: "agent.ping"}}},
		{ID: 2, Fields: map[string]api.FieldValue{"key_": {Raw: "calc"}}},
	}, nil
}
func (f fakeItemSource) ItemType(rowID uint64) api.ItemType { return f.types[rowID] }

func TestBuildPayloadOrdersByID(t *testing.T) {
	p := configsync.NewProducer(map[api.TableName]configsync.TableSource{
		api.TableHosts: fakeHostSource{},
	}, nil)

	payload, err := p.BuildPayload(api.TableHosts, 7)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, ids(payload.Rows))
}

func TestBuildPayloadFiltersServerProcessedItems(t *testing.T) {
	items := fakeItemSource{types: map[uint64]api.ItemType{
		1: api.ItemTypeZabbixAgent,
		2: api.ItemTypeCalculated,
	}}
	p := configsync.NewProducer(map[api.TableName]configsync.TableSource{
		api.TableItems: items,
	}, nil)

	payload, err := p.BuildPayload(api.TableItems, 7)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids(payload.Rows))
}

func TestBuildPayloadUnknownTable(t *testing.T) {
	p := configsync.NewProducer(map[api.TableName]configsync.TableSource{}, nil)
	_, err := p.BuildPayload(api.TableConfig, 1)
	require.Error(t, err)
}

func TestBuildAllFollowsApplyOrder(t *testing.T) {
	p := configsync.NewProducer(map[api.TableName]configsync.TableSource{
		api.TableHosts:      fakeHostSource{},
		api.TableGlobalMacro: fakeHostSource{},
	}, nil)

	all, err := p.BuildAll(1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, api.TableGlobalMacro, all[0].Table) // precedes hosts in TableApplyOrder
	require.Equal(t, api.TableHosts, all[1].Table)
}

func ids(rows []api.Row) []uint64 {
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
