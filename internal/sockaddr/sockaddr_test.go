package sockaddr

import "testing"

func TestPackUnpackInet4RoundTrip(t *testing.T) {
	want := [4]byte{127, 0, 0, 1}
	buf := PackInet4(2, want, 9000)

	family, ip, port, err := UnpackInet4(buf)
	if err != nil {
		t.Fatalf("UnpackInet4: %v", err)
	}
	if family != 2 || ip != want || port != 9000 {
		t.Fatalf("round trip mismatch: family=%d ip=%v port=%d", family, ip, port)
	}
}

func TestPackUnpackInet6RoundTrip(t *testing.T) {
	var ip [16]byte
	ip[15] = 1

	buf := PackInet6(10, ip, 443, 0, 7)
	family, gotIP, port, _, scope, err := UnpackInet6(buf)
	if err != nil {
		t.Fatalf("UnpackInet6: %v", err)
	}
	if family != 10 || gotIP != ip || port != 443 || scope != 7 {
		t.Fatalf("round trip mismatch: family=%d ip=%v port=%d scope=%d", family, gotIP, port, scope)
	}
}

func TestPackUnpackUnixRoundTrip(t *testing.T) {
	buf, err := PackUnix(1, "/tmp/asio-test.sock")
	if err != nil {
		t.Fatalf("PackUnix: %v", err)
	}

	family, path, err := UnpackUnix(buf)
	if err != nil {
		t.Fatalf("UnpackUnix: %v", err)
	}
	if family != 1 || path != "/tmp/asio-test.sock" {
		t.Fatalf("round trip mismatch: family=%d path=%q", family, path)
	}
}

func TestPackUnixRejectsOverlongPath(t *testing.T) {
	long := make([]byte, MaxUnixPathLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := PackUnix(1, string(long)); err == nil {
		t.Fatal("expected error for overlong unix path")
	}
}

func TestPeekFamilyShortBuffer(t *testing.T) {
	if _, err := PeekFamily([]byte{0}); err == nil {
		t.Fatal("expected error for short buffer")
	}
}
