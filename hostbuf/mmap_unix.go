//go:build unix

package hostbuf

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Open mmaps path read/write, truncating or extending it to exactly
// l.TotalSize() bytes first, and returns the mapped Regions plus a Close
// func that unmaps and closes the file. The mapping is MAP_SHARED, so
// writes through the returned slices are durable once the caller syncs or
// closes.
func Open(path string, l Layout) (Regions, func() error, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return Regions{}, nil, fmt.Errorf("hostbuf: open %s: %w", path, err)
	}
	if err := f.Truncate(int64(l.TotalSize())); err != nil {
		f.Close()
		return Regions{}, nil, fmt.Errorf("hostbuf: truncate %s to %d bytes: %w", path, l.TotalSize(), err)
	}

	buf, err := unix.Mmap(int(f.Fd()), 0, l.TotalSize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return Regions{}, nil, fmt.Errorf("hostbuf: mmap %s: %w", path, err)
	}

	closeFn := func() error {
		if err := unix.Msync(buf, unix.MS_SYNC); err != nil {
			f.Close()
			return fmt.Errorf("hostbuf: msync %s: %w", path, err)
		}
		if err := unix.Munmap(buf); err != nil {
			f.Close()
			return fmt.Errorf("hostbuf: munmap %s: %w", path, err)
		}
		return f.Close()
	}
	return sliceRegions(buf, l), closeFn, nil
}
