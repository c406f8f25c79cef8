package dns

import "net/netip"

type addrRange struct {
	lower, upper netip.Addr
}

func v4Range(lower, upper string) addrRange {
	return addrRange{netip.MustParseAddr(lower), netip.MustParseAddr(upper)}
}

func (r addrRange) contains(ip netip.Addr) bool {
	return ip.Compare(r.lower) >= 0 && ip.Compare(r.upper) <= 0
}

// Multicast and benchmarking ranges may be registered.
var restrictedV4 = []addrRange{
	v4Range("0.0.0.0", "0.255.255.255"),       // current network
	v4Range("10.0.0.0", "10.255.255.255"),     // private
	v4Range("172.16.0.0", "172.31.255.255"),   // private
	v4Range("192.168.0.0", "192.168.255.255"), // private
	v4Range("100.64.0.0", "100.127.255.255"),  // shared address space
	v4Range("169.254.0.0", "169.254.255.255"), // link local
	v4Range("192.0.0.0", "192.0.0.255"),       // IETF protocol assignments
	v4Range("192.0.2.0", "192.0.2.255"),       // TEST-NET-1
	v4Range("198.51.100.0", "198.51.100.255"), // TEST-NET-2
	v4Range("203.0.113.0", "203.0.113.255"),   // TEST-NET-3
	v4Range("233.252.0.0", "233.252.0.255"),   // MCAST-TEST-NET
	v4Range("192.88.99.0", "192.88.99.255"),   // reserved
	v4Range("240.0.0.0", "255.255.255.255"),   // reserved and broadcast
}

// IsRestricted tells if an address lies in a range that hosts may not
// claim. IPv6 addresses are never restricted.
func IsRestricted(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.Is4() {
		return false
	}

	for _, r := range restrictedV4 {
		if r.contains(ip) {
			return true
		}
	}

	return false
}
