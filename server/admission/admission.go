// Package admission implements connection admission (spec.md §4.7,
// component C7): the gate every incoming connection passes through
// before its payload is parsed.
package admission

import (
	"net"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"

	"github.com/fleetwatch/core/api"
	"github.com/fleetwatch/core/helper"
)

// SecurityMode is the connection's observed transport security.
type SecurityMode int

const (
	Unencrypted SecurityMode = iota
	TLSWithCert
	TLSWithPSK
)

// Caller is the resolved identity (proxy, host, or anonymous sender)
// an incoming connection is checked against (spec.md §4.7 step 1-4).
type Caller struct {
	AllowedAddrs   *helper.AddrSet // nil or empty means "no address restriction"
	TLSAcceptMask  api.TLSAccept
	TLSIssuer      string // empty means "no constraint"
	TLSSubject     string
	TLSPSKIdentity string // empty rejects every PSK connection
}

// Presented is what the peer actually offered on the wire.
type Presented struct {
	PeerAddr    net.IP
	Mode        SecurityMode
	CertIssuer  string
	CertSubject string
	PSKIdentity string
}

// Gate runs spec.md §4.7's five checks in order.
type Gate struct {
	log hclog.Logger
}

// NewGate builds a Gate.
func NewGate(log hclog.Logger) *Gate {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Gate{log: log.Named("admission")}
}

// Admit runs the full check sequence, returning an *api.AdmissionError
// categorized for the peer (spec.md §4.7: "do not leak which check
// failed beyond a category") the moment any step fails.
func (g *Gate) Admit(caller Caller, presented Presented) error {
	if caller.AllowedAddrs != nil && !caller.AllowedAddrs.Empty() {
		if presented.PeerAddr == nil || !caller.AllowedAddrs.Contains(presented.PeerAddr) {
			return g.reject("not allowed from this address")
		}
	}

	if !modeAllowed(caller.TLSAcceptMask, presented.Mode) {
		return g.reject("connection-type-not-allowed")
	}

	if presented.Mode == TLSWithCert {
		if caller.TLSIssuer != "" && caller.TLSIssuer != presented.CertIssuer {
			return g.reject("cert issuer mismatch")
		}
		if caller.TLSSubject != "" && caller.TLSSubject != presented.CertSubject {
			return g.reject("cert subject mismatch")
		}
	}

	if presented.Mode == TLSWithPSK {
		if caller.TLSPSKIdentity == "" || len(caller.TLSPSKIdentity) != len(presented.PSKIdentity) || caller.TLSPSKIdentity != presented.PSKIdentity {
			return g.reject("PSK identity mismatch")
		}
	}

	metrics.IncrCounter([]string{"admission", "accepted"}, 1)
	return nil
}

func (g *Gate) reject(category string) error {
	metrics.IncrCounter([]string{"admission", "rejected", category}, 1)
	g.log.Debug("connection rejected", "category", category)
	return api.NewAdmissionError(category)
}

func modeAllowed(mask api.TLSAccept, mode SecurityMode) bool {
	switch mode {
	case Unencrypted:
		return mask&api.TLSAcceptUnencrypted != 0
	case TLSWithCert:
		return mask&api.TLSAcceptCertificate != 0
	case TLSWithPSK:
		return mask&api.TLSAcceptPSK != 0
	default:
		return false
	}
}
