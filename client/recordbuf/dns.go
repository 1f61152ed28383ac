package recordbuf

import "github.com/miekg/dns"

// ValidDNSName reports whether name is a syntactically valid DNS name,
// the check applied to the DNS field of discovery and autoregistration
// records before they're queued (an empty name is always valid: most
// discovered devices are reached by IP alone).
func ValidDNSName(name string) bool {
	if name == "" {
		return true
	}
	_, ok := dns.IsDomainName(name)
	return ok
}
