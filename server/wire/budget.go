package wire

// Budget enforces spec.md §4.8's size discipline for one outgoing
// message: JSONReserved bytes are held back for at least one record
// plus envelope overhead, and batch mode (multiple record kinds in one
// message) splits the remainder evenly across kinds.
type Budget struct {
	MaxRecv      int
	JSONReserved int
}

// NewBudget builds a Budget. jsonReserved defaults to 2048 bytes
// (room for one typical record plus envelope overhead) when given as
// zero.
func NewBudget(maxRecv, jsonReserved int) Budget {
	if jsonReserved == 0 {
		jsonReserved = 2048
	}
	return Budget{MaxRecv: maxRecv, JSONReserved: jsonReserved}
}

// SingleKindLimit is the byte budget when a message carries only one
// record kind: record emission stops once cumulative size exceeds it.
func (b Budget) SingleKindLimit() int {
	limit := b.MaxRecv - b.JSONReserved
	if limit < 0 {
		return 0
	}
	return limit
}

// BatchKindLimit is the per-kind byte budget when a message carries
// multiple record kinds at once (spec.md §4.8: "stops at
// (MAX_RECV − JSON_RESERVED) / 2 per kind").
func (b Budget) BatchKindLimit() int {
	return b.SingleKindLimit() / 2
}
