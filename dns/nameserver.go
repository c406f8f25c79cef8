// Package dns keeps the name-to-address registry of the simulated hosts.
package dns

import (
	"fmt"
	"net/netip"
	"sync"
)

// Reason tells why a registration was refused.
type Reason int

// Reasons for refusing a registration.
const (
	Restricted Reason = iota
	Duplicate
)

func (r Reason) String() string {
	switch r {
	case Restricted:
		return "restricted"
	case Duplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// RegistrationError reports a refused registration.
type RegistrationError struct {
	Name   string
	IP     netip.Addr
	Reason Reason
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("invalid registration for %s ip `%v` to domain `%s`",
		e.Reason, e.IP, e.Name)
}

// A Record binds a name to an address.
type Record struct {
	Name string
	IP   netip.Addr
}

// A NameServer maps host names to addresses and back. It is safe for
// concurrent use.
type NameServer struct {
	lock   sync.RWMutex
	byIP   map[netip.Addr]Record
	byName map[string]Record
	next   netip.Addr
}

// NewNameServer creates an empty NameServer.
func NewNameServer() *NameServer {
	return &NameServer{
		byIP:   make(map[netip.Addr]Record),
		byName: make(map[string]Record),
		next:   netip.MustParseAddr("11.0.0.1"),
	}
}

// Register binds name to ip. Loopback addresses are always accepted and never
// stored. Restricted and already registered addresses or names are refused
// with a *RegistrationError.
func (s *NameServer) Register(name string, ip netip.Addr) (Record, error) {
	ip = ip.Unmap()
	record := Record{Name: name, IP: ip}

	if ip.IsLoopback() {
		return record, nil
	}

	if IsRestricted(ip) {
		return Record{}, &RegistrationError{Name: name, IP: ip, Reason: Restricted}
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	_, ipTaken := s.byIP[ip]
	_, nameTaken := s.byName[name]
	if ipTaken || nameTaken {
		return Record{}, &RegistrationError{Name: name, IP: ip, Reason: Duplicate}
	}

	s.byIP[ip] = record
	s.byName[name] = record

	return record, nil
}

// Deregister removes a record. Loopback records are ignored.
func (s *NameServer) Deregister(record Record) {
	if record.IP.IsLoopback() {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if current, ok := s.byIP[record.IP]; ok && current == record {
		delete(s.byIP, record.IP)
		delete(s.byName, record.Name)
	}
}

// Lookup returns the record registered under name.
func (s *NameServer) Lookup(name string) (Record, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	r, ok := s.byName[name]

	return r, ok
}

// ReverseLookup returns the record registered for ip.
func (s *NameServer) ReverseLookup(ip netip.Addr) (Record, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	r, ok := s.byIP[ip.Unmap()]

	return r, ok
}

// Len returns the number of stored records.
func (s *NameServer) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.byIP)
}

// AllocateAddr returns the lowest public IPv4 address above the previous
// allocation that is neither restricted nor registered.
func (s *NameServer) AllocateAddr() (netip.Addr, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for ip := s.next; ip.IsValid() && ip.Is4(); ip = ip.Next() {
		if IsRestricted(ip) || ip.IsMulticast() {
			continue
		}

		if _, taken := s.byIP[ip]; taken {
			continue
		}

		s.next = ip.Next()

		return ip, nil
	}

	return netip.Addr{}, fmt.Errorf("no IPv4 address left to allocate")
}
