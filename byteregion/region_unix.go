//go:build unix

package byteregion

import (
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// FromFile memory-maps path read-only (or read-write when readOnly is
// false) and fadvises the whole mapping for random access, priming the
// page cache for a freshly opened index file. An empty or unreadable file
// yields the empty region rather than an error: construction never fails
// on a bad path alone.
func FromFile(path string, readOnly bool) (Region, error) {
	flag := os.O_RDONLY
	if !readOnly {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		logOpenFailure(path, err)
		return Empty(), nil
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		logOpenFailure(path, err)
		return Empty(), nil
	}
	size := stat.Size()
	if size == 0 {
		f.Close()
		return Empty(), nil
	}

	prot := unix.PROT_READ
	if !readOnly {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		logOpenFailure(path, err)
		return Empty(), nil
	}

	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM); err != nil {
		slog.Warn("byteregion: fadvise(RANDOM) failed", "path", path, "error", err)
	}

	root := newRoot(func() {
		_ = unix.Munmap(data)
		_ = f.Close()
	})
	return Region{data: data, root: root}, nil
}
