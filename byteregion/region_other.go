//go:build !unix

package byteregion

import "os"

// FromFile on non-unix builds has no real mmap primitive wired; it reads
// the whole file into an owned buffer instead. Callers still get a Region
// with the same zero-copy-from-Go's-perspective API, just without the
// kernel-level on-demand paging a true mmap would give.
func FromFile(path string, readOnly bool) (Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		logOpenFailure(path, err)
		return Empty(), nil
	}
	if len(data) == 0 {
		return Empty(), nil
	}
	return FromBuffer(data), nil
}
