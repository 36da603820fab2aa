//go:build !unix

package hostbuf

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Open provides the same Regions/Close contract as the unix build using a
// plain read-into-memory-then-write-back file, for platforms without
// mmap(2). Writes through the returned slices are only durable once Close
// runs.
func Open(path string, l Layout) (Regions, func() error, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return Regions{}, nil, fmt.Errorf("hostbuf: open %s: %w", path, err)
	}
	if err := f.Truncate(int64(l.TotalSize())); err != nil {
		f.Close()
		return Regions{}, nil, fmt.Errorf("hostbuf: truncate %s to %d bytes: %w", path, l.TotalSize(), err)
	}

	buf := make([]byte, l.TotalSize())
	if _, err := io.ReadFull(f, buf); err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return Regions{}, nil, fmt.Errorf("hostbuf: read %s: %w", path, err)
	}

	closeFn := func() error {
		if _, err := f.WriteAt(buf, 0); err != nil {
			f.Close()
			return fmt.Errorf("hostbuf: write back %s: %w", path, err)
		}
		return f.Close()
	}
	return sliceRegions(buf, l), closeFn, nil
}
