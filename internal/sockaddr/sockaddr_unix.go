//go:build linux || darwin

package sockaddr

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Families mirrors the platform AF_* constants so callers outside this
// package never need to import golang.org/x/sys/unix directly just to name
// an address family.
const (
	AFInet  = unix.AF_INET
	AFInet6 = unix.AF_INET6
	AFUnix  = unix.AF_UNIX
)

// ToUnix converts a wire-format buffer (as produced by PackInet4, PackInet6
// or PackUnix) into the concrete unix.Sockaddr the x/sys/unix Bind/Connect
// calls expect.
func ToUnix(b []byte) (unix.Sockaddr, error) {
	family, err := PeekFamily(b)
	if err != nil {
		return nil, err
	}
	switch family {
	case AFInet:
		_, ip, port, err := UnpackInet4(b)
		if err != nil {
			return nil, err
		}
		return &unix.SockaddrInet4{Port: int(port), Addr: ip}, nil
	case AFInet6:
		_, ip, port, _, scopeID, err := UnpackInet6(b)
		if err != nil {
			return nil, err
		}
		return &unix.SockaddrInet6{Port: int(port), ZoneId: scopeID, Addr: ip}, nil
	case AFUnix:
		_, path, err := UnpackUnix(b)
		if err != nil {
			return nil, err
		}
		return &unix.SockaddrUnix{Name: path}, nil
	default:
		return nil, fmt.Errorf("sockaddr: unsupported family %d", family)
	}
}

// FromUnix converts a concrete unix.Sockaddr (as returned by Accept4,
// Getsockname or Getpeername) into this package's wire format.
func FromUnix(sa unix.Sockaddr) ([]byte, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return PackInet4(AFInet, v.Addr, uint16(v.Port)), nil
	case *unix.SockaddrInet6:
		return PackInet6(AFInet6, v.Addr, uint16(v.Port), 0, v.ZoneId), nil
	case *unix.SockaddrUnix:
		return PackUnix(AFUnix, v.Name)
	default:
		return nil, fmt.Errorf("sockaddr: unsupported unix.Sockaddr type %T", sa)
	}
}
