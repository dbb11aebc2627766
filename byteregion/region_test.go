package byteregion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBufferAndSlice(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	r := FromBuffer(buf)
	defer r.Close()

	require.EqualValues(t, 8, r.Size())
	require.Equal(t, buf, r.Bytes())

	sub := r.Slice(2, 4)
	defer sub.Close()
	require.EqualValues(t, 4, sub.Size())
	require.Equal(t, []byte{3, 4, 5, 6}, sub.Bytes())
}

func TestSliceOutOfRangeReturnsEmpty(t *testing.T) {
	r := FromBuffer([]byte{1, 2, 3})
	defer r.Close()

	require.EqualValues(t, 0, r.Slice(0, 10).Size())
	require.EqualValues(t, 0, r.Slice(-1, 2).Size())
	require.EqualValues(t, 0, r.Slice(2, -1).Size())
}

func TestEmptyRegion(t *testing.T) {
	r := Empty()
	require.EqualValues(t, 0, r.Size())
	require.Nil(t, r.Bytes())
}

func TestFromFileMissingReturnsEmpty(t *testing.T) {
	r, err := FromFile(filepath.Join(t.TempDir(), "does-not-exist"), true)
	require.NoError(t, err)
	require.EqualValues(t, 0, r.Size())
}

func TestFromFileEmptyReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := FromFile(path, true)
	require.NoError(t, err)
	require.EqualValues(t, 0, r.Size())
}

func TestFromFileReadsContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	want := []byte("hello region")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	r, err := FromFile(path, true)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, want, r.Bytes())
}

func TestCloneSharesRootAndReleasesOnce(t *testing.T) {
	released := 0
	root := newRoot(func() { released++ })
	r := Region{data: []byte{1, 2, 3}, root: root}

	clone := r.Clone()
	r.Close()
	require.Equal(t, 0, released)
	clone.Close()
	require.Equal(t, 1, released)
}
