// Package wire implements the JSON envelope exchanged between proxy
// and server (spec.md §4.8, component C8).
package wire

import (
	"encoding/json"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/helper"
)

// Request tags identify the exchange an Envelope carries (spec.md §4.8).
const (
	RequestProxyData   = "proxy data"
	RequestProxyConfig = "proxy config"
	RequestAgentData   = "agent data"
	RequestSenderData  = "sender data"
)

// Response values for the reply side of an exchange.
const (
	ResponseSuccess = "success"
	ResponseFailed  = "failed"
)

// Envelope is the top-level wire shape. Every field round-trips
// through encoding/json with the exact wire key names spec.md §4.8
// lists, including the two-word section keys.
type Envelope struct {
	Request string `json:"request,omitempty"`
	Host    string `json:"host,omitempty"`
	Session string `json:"session,omitempty"`
	Version string `json:"version,omitempty"`
	Clock   int64  `json:"clock,omitempty"`
	NS      int32  `json:"ns,omitempty"`

	Data             json.RawMessage `json:"data,omitempty"`
	HistoryData      json.RawMessage `json:"history data,omitempty"`
	DiscoveryData    json.RawMessage `json:"discovery data,omitempty"`
	HostAvailability json.RawMessage `json:"host availability,omitempty"`
	AutoRegistration json.RawMessage `json:"auto registration,omitempty"`
	Tasks            json.RawMessage `json:"tasks,omitempty"`

	Response string `json:"response,omitempty"`
	Info     string `json:"info,omitempty"`
	Upload   *int   `json:"upload,omitempty"`
}

// Timestamp returns the envelope's clock/ns pair as a helper.Timestamp.
func (e Envelope) Timestamp() helper.Timestamp {
	return helper.Timestamp{Seconds: e.Clock, Nanoseconds: e.NS}
}

// SetTimestamp stamps ts into the envelope's clock/ns fields.
func (e *Envelope) SetTimestamp(ts helper.Timestamp) {
	e.Clock = ts.Seconds
	e.NS = ts.Nanoseconds
}

// NeedsUpload reports the backpressure hint: true asks the sender to
// pause (spec.md §4.8: "upload ∈ {0,1} (backpressure hint to pause
// sending)").
func (e Envelope) NeedsUpload() bool {
	return e.Upload != nil && *e.Upload != 0
}

// SetUpload sets the backpressure hint.
func (e *Envelope) SetUpload(pause bool) {
	v := 0
	if pause {
		v = 1
	}
	e.Upload = &v
}

// DecodeHistory parses the envelope's HistoryData section into
// []api.HistoryRecord, picking each record's api.Value variant via
// valueType (see DecodeHistoryData).
func (e Envelope) DecodeHistory(valueType ValueTypeLookup) ([]api.HistoryRecord, error) {
	return DecodeHistoryData(e.HistoryData, valueType)
}

// Encode serializes the envelope to JSON.
func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire envelope.
func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
