package session

import (
	"crypto/md5" //nolint:gosec // not a security boundary, spec.md §4.5: "the scheme is not security"
	"encoding/binary"
	"encoding/hex"
)

// NewToken builds a session token as hex(md5(seed ‖ nowNanoseconds)),
// truncated to 32 chars (spec.md §4.5). It is a cheap
// universally-unique label, not a credential.
func NewToken(seed []byte, nowNanoseconds int64) string {
	var ns [8]byte
	binary.BigEndian.PutUint64(ns[:], uint64(nowNanoseconds))
	h := md5.Sum(append(append([]byte{}, seed...), ns[:]...))
	return hex.EncodeToString(h[:])[:32]
}
