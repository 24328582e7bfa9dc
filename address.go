package asio

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/sockloop/asio/internal/constants"
)

func nativePutInt32(b []byte, v int32) {
	binary.NativeEndian.PutUint32(b, uint32(v))
}

func nativeGetInt32(b []byte) int32 {
	return int32(binary.NativeEndian.Uint32(b))
}

// MaxAddressSize is the capacity of Address and Option's inline storage.
const MaxAddressSize = constants.MaxSockaddrSize

// Address is a fixed-capacity inline byte buffer sized for the largest
// supported address variant (sockaddr_in6, sockaddr_un), plus a logical
// size tracking how many of those bytes are meaningful. It round-trips
// through the platform address structures via internal/sockaddr.
type Address struct {
	bytes [MaxAddressSize]byte
	size  int
}

// NewAddressSize returns a zero-filled Address with the given logical size.
func NewAddressSize(size int) Address {
	if size > MaxAddressSize {
		size = MaxAddressSize
	}
	return Address{size: size}
}

// NewAddressValue packs a typed POD value (e.g. a platform raw sockaddr
// struct) into a new Address by copying its in-memory representation,
// mirroring the source library's memcpy-from-typed-value constructor. T
// must not itself contain pointers: the copy is a flat byte-for-byte image
// of v's memory, not a deep copy.
func NewAddressValue[T any](v T) Address {
	var a Address
	n := copy(a.bytes[:], unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)))
	a.size = n
	return a
}

// NewAddressBytes copies b (which must fit within MaxAddressSize) into a
// new Address with logical size len(b).
func NewAddressBytes(b []byte) Address {
	var a Address
	n := copy(a.bytes[:], b)
	a.size = n
	return a
}

// Bytes returns the logical-size-prefix view of a's storage. The returned
// slice aliases a; callers must not retain it past a's next mutation.
func (a *Address) Bytes() []byte {
	return a.bytes[:a.size]
}

// Size returns a's logical size.
func (a *Address) Size() int {
	return a.size
}

// Equal compares logical_size-prefix byte content, per the module's address
// equality rule.
func (a Address) Equal(other Address) bool {
	return a.size == other.size && bytes.Equal(a.bytes[:a.size], other.bytes[:other.size])
}

// Compare orders addresses lexicographically by (size, bytes).
func (a Address) Compare(other Address) int {
	if a.size != other.size {
		if a.size < other.size {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.bytes[:a.size], other.bytes[:other.size])
}

// Option has the same shape as Address: fixed inline storage for an
// arbitrary POD option value, distinguishing value, raw-span and
// size-only construction.
type Option struct {
	bytes [MaxAddressSize]byte
	size  int
}

// NewOptionSize returns a zero-filled Option of the given logical size.
func NewOptionSize(size int) Option {
	if size > MaxAddressSize {
		size = MaxAddressSize
	}
	return Option{size: size}
}

// NewOptionInt packs a native-endian int32 option value, the common case
// for getsockopt/setsockopt integer options (SO_REUSEADDR, SO_ERROR, ...).
func NewOptionInt(v int32) Option {
	var o Option
	nativePutInt32(o.bytes[:4], v)
	o.size = 4
	return o
}

// NewOptionBytes copies a raw byte span into a new Option.
func NewOptionBytes(b []byte) Option {
	var o Option
	n := copy(o.bytes[:], b)
	o.size = n
	return o
}

// Bytes returns the logical-size-prefix view of o's storage.
func (o *Option) Bytes() []byte {
	return o.bytes[:o.size]
}

// Size returns o's logical size.
func (o *Option) Size() int {
	return o.size
}

// Int interprets o's first 4 bytes as a native-endian int32.
func (o *Option) Int() int32 {
	if o.size < 4 {
		return 0
	}
	return nativeGetInt32(o.bytes[:4])
}
