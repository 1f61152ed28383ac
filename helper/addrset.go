package helper

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	radix "github.com/armon/go-radix"
)

// AddrSet matches a peer address against an allowlist of single IPs,
// dash ranges ("a.b.c.x-y"), and CIDR blocks. CIDR entries are indexed in
// a radix tree keyed by the address's prefix bits so a long allowlist of
// blocks resolves in O(bits) instead of a linear scan; single-IP and
// range entries aren't prefix-shaped and are checked with a plain slice
// scan first since they're typically few.
type AddrSet struct {
	singles map[string]struct{}
	ranges  []addrRange
	cidrs   *radix.Tree
}

type addrRange struct {
	lo, hi net.IP
}

// NewAddrSet parses a comma-separated allowlist as accepted by the
// per-entity peer-IP policy (spec.md §4.7).
func NewAddrSet(list string) (*AddrSet, error) {
	s := &AddrSet{
		singles: make(map[string]struct{}),
		cidrs:   radix.New(),
	}
	if strings.TrimSpace(list) == "" {
		return s, nil
	}
	for _, raw := range strings.Split(list, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		switch {
		case strings.Contains(entry, "/"):
			_, ipnet, err := net.ParseCIDR(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid CIDR %q: %w", entry, err)
			}
			s.cidrs.Insert(prefixKey(ipnet), ipnet)
		case strings.Contains(entry, "-") && strings.Count(entry, ".") == 3:
			r, err := parseDashRange(entry)
			if err != nil {
				return nil, err
			}
			s.ranges = append(s.ranges, r)
		default:
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid address %q", entry)
			}
			s.singles[ip.String()] = struct{}{}
		}
	}
	return s, nil
}

// Empty reports whether the allowlist has no entries, meaning the
// caller should skip the address check entirely (spec.md: "if
// non-empty, the peer address must match").
func (s *AddrSet) Empty() bool {
	return len(s.singles) == 0 && len(s.ranges) == 0 && s.cidrs.Len() == 0
}

// Contains reports whether ip matches any entry in the set.
func (s *AddrSet) Contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if _, ok := s.singles[ip.String()]; ok {
		return true
	}
	for _, r := range s.ranges {
		if bytesBetween(ip, r.lo, r.hi) {
			return true
		}
	}
	found := false
	s.cidrs.WalkPath(prefixKeyForIP(ip), func(_ string, v interface{}) bool {
		if v.(*net.IPNet).Contains(ip) {
			found = true
			return true
		}
		return false
	})
	return found
}

func prefixKey(n *net.IPNet) string {
	ones, bits := n.Mask.Size()
	if bits == 32 {
		// ipBits renders IPv4 in its 128-bit v4-mapped form.
		ones += 96
	}
	ip := n.IP
	return ipBits(ip)[:ones]
}

func prefixKeyForIP(ip net.IP) string {
	return ipBits(ip)
}

func ipBits(ip net.IP) string {
	b := ip.To16()
	var sb strings.Builder
	sb.Grow(128)
	for _, octet := range b {
		for bit := 7; bit >= 0; bit-- {
			if octet&(1<<uint(bit)) != 0 {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

func bytesBetween(ip, lo, hi net.IP) bool {
	a, b, c := ip.To16(), lo.To16(), hi.To16()
	if a == nil || b == nil || c == nil {
		return false
	}
	return bytesCompare(a, b) >= 0 && bytesCompare(a, c) <= 0
}

func bytesCompare(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// parseDashRange parses "a.b.c.x-y" where only the last octet varies.
func parseDashRange(entry string) (addrRange, error) {
	lastDot := strings.LastIndex(entry, ".")
	if lastDot < 0 {
		return addrRange{}, fmt.Errorf("invalid range %q", entry)
	}
	prefix := entry[:lastDot]
	lastPart := entry[lastDot+1:]
	bounds := strings.SplitN(lastPart, "-", 2)
	if len(bounds) != 2 {
		return addrRange{}, fmt.Errorf("invalid range %q", entry)
	}
	loOctet, err := strconv.Atoi(bounds[0])
	if err != nil || loOctet < 0 || loOctet > 255 {
		return addrRange{}, fmt.Errorf("invalid range start in %q", entry)
	}
	hiOctet, err := strconv.Atoi(bounds[1])
	if err != nil || hiOctet < 0 || hiOctet > 255 {
		return addrRange{}, fmt.Errorf("invalid range end in %q", entry)
	}
	if hiOctet < loOctet {
		return addrRange{}, fmt.Errorf("descending range in %q", entry)
	}
	lo := net.ParseIP(fmt.Sprintf("%s.%d", prefix, loOctet))
	hi := net.ParseIP(fmt.Sprintf("%s.%d", prefix, hiOctet))
	if lo == nil || hi == nil {
		return addrRange{}, fmt.Errorf("invalid range %q", entry)
	}
	return addrRange{lo: lo, hi: hi}, nil
}
