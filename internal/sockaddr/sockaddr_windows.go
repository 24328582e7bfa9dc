//go:build windows

package sockaddr

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Families mirrors the platform AF_* constants, paralleling sockaddr_unix.go.
const (
	AFInet  = windows.AF_INET
	AFInet6 = windows.AF_INET6
	AFUnix  = windows.AF_UNIX
)

// ToUnix (named to mirror the unix build's entry point; there is no
// "unix.Sockaddr" on Windows, only windows.Sockaddr) converts a wire-format
// buffer into the concrete windows.Sockaddr the x/sys/windows Bind/Connect
// calls expect.
func ToUnix(b []byte) (windows.Sockaddr, error) {
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
		return &windows.SockaddrInet4{Port: int(port), Addr: ip}, nil
	case AFInet6:
		_, ip, port, _, scopeID, err := UnpackInet6(b)
		if err != nil {
			return nil, err
		}
		return &windows.SockaddrInet6{Port: int(port), ZoneId: scopeID, Addr: ip}, nil
	case AFUnix:
		_, path, err := UnpackUnix(b)
		if err != nil {
			return nil, err
		}
		return &windows.SockaddrUnix{Name: path}, nil
	default:
		return nil, fmt.Errorf("sockaddr: unsupported family %d", family)
	}
}

// FromUnix converts a concrete windows.Sockaddr into this package's wire
// format.
func FromUnix(sa windows.Sockaddr) ([]byte, error) {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		return PackInet4(AFInet, v.Addr, uint16(v.Port)), nil
	case *windows.SockaddrInet6:
		return PackInet6(AFInet6, v.Addr, uint16(v.Port), 0, v.ZoneId), nil
	case *windows.SockaddrUnix:
		return PackUnix(AFUnix, v.Name)
	default:
		return nil, fmt.Errorf("sockaddr: unsupported windows.Sockaddr type %T", sa)
	}
}
