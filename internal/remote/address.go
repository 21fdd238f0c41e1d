// Package remote defines the address of a controllable device.
package remote

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// Address identifies a device: an IPv4 address and a TCP port.
// It also names the device's namespace in the page cache.
type Address struct {
	IP   [4]byte
	Port uint16
}

// New builds an Address from four octets and a port.
func New(a, b, c, d byte, port uint16) Address {
	return Address{IP: [4]byte{a, b, c, d}, Port: port}
}

// Parse parses "a.b.c.d:port".
func Parse(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid device address %q: %w", s, err)
	}
	return ParseHostPort(host, portStr)
}

// ParseHostPort parses a dotted IPv4 host and a decimal port.
func ParseHostPort(host, port string) (Address, error) {
	ip, err := netip.ParseAddr(host)
	if err != nil || !ip.Is4() {
		return Address{}, fmt.Errorf("invalid IPv4 address %q", host)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return Address{}, fmt.Errorf("invalid port %q: %w", port, err)
	}
	return Address{IP: ip.As4(), Port: uint16(p)}, nil
}

// Host returns the dotted IPv4 form.
func (a Address) Host() string {
	return netip.AddrFrom4(a.IP).String()
}

// String returns "a.b.c.d:port", suitable for net.Dial.
func (a Address) String() string {
	return net.JoinHostPort(a.Host(), strconv.Itoa(int(a.Port)))
}

// CacheKey returns the directory name of this device in the page cache,
// e.g. "192_168_1_10_9874".
func (a Address) CacheKey() string {
	return fmt.Sprintf("%d_%d_%d_%d_%d", a.IP[0], a.IP[1], a.IP[2], a.IP[3], a.Port)
}
