package hostbuf

import "testing"

func TestLayoutTotalSize(t *testing.T) {
	l := Layout{HeaderSize: 80, RollSize: 248, CanopySize: 64}
	if got, want := l.TotalSize(), 392; got != want {
		t.Errorf("TotalSize() = %d, want %d", got, want)
	}
}

func TestSliceRegionsPartitionsContiguousBuffer(t *testing.T) {
	l := Layout{HeaderSize: 4, RollSize: 8, CanopySize: 2}
	buf := make([]byte, l.TotalSize())
	for i := range buf {
		buf[i] = byte(i)
	}

	r := sliceRegions(buf, l)
	if len(r.Header) != 4 || r.Header[0] != 0 {
		t.Errorf("Header = %v, want len 4 starting at 0", r.Header)
	}
	if len(r.Roll) != 8 || r.Roll[0] != 4 {
		t.Errorf("Roll = %v, want len 8 starting at 4", r.Roll)
	}
	if len(r.Canopy) != 2 || r.Canopy[0] != 12 {
		t.Errorf("Canopy = %v, want len 2 starting at 12", r.Canopy)
	}

	// Regions alias buf: a write through one is visible via the others.
	r.Roll[0] = 0xff
	if buf[4] != 0xff {
		t.Errorf("buf[4] = %#x after writing through r.Roll, want 0xff", buf[4])
	}
}
