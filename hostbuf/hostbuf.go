// Package hostbuf maps a roll's header, body, and canopy regions out of a
// single backing file so a long-lived host process (rollctl and friends)
// can hand the dispatch package live byte slices instead of re-reading the
// file on every operation.
package hostbuf

// Layout describes where a roll's three regions sit inside one backing
// file: the fixed-size Header, the roll body (sized by
// dispatch.RollBodySize), and the canopy cache (any multiple of 32 bytes,
// zero if the tree carries no canopy).
type Layout struct {
	HeaderSize int
	RollSize   int
	CanopySize int
}

// TotalSize is the file size a Layout requires.
func (l Layout) TotalSize() int {
	return l.HeaderSize + l.RollSize + l.CanopySize
}

// Regions is a mapped file's three byte slices, sliced out of one backing
// mapping so writes to any of them are visible to the others through the
// same page cache.
type Regions struct {
	Header []byte
	Roll   []byte
	Canopy []byte
}

func sliceRegions(buf []byte, l Layout) Regions {
	return Regions{
		Header: buf[0:l.HeaderSize],
		Roll:   buf[l.HeaderSize : l.HeaderSize+l.RollSize],
		Canopy: buf[l.HeaderSize+l.RollSize : l.HeaderSize+l.RollSize+l.CanopySize],
	}
}
