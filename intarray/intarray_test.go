package intarray

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestViewWidth1(t *testing.T) {
	a := View([]byte{0x41, 0x41, 0x42}, 3, 1)
	require.EqualValues(t, 3, a.Length())
	require.EqualValues(t, 1, a.ElementWidth())
	require.EqualValues(t, 0x41, a.Get(0))
	require.EqualValues(t, 0x41, a.Get(1))
	require.EqualValues(t, 0x42, a.Get(2))
	require.EqualValues(t, 0, a.Get(3)) // out of range
	require.EqualValues(t, 0, a.Get(-1))
}

func TestViewSignExtension(t *testing.T) {
	// 0xFF as an 8-bit signed value is -1.
	a := View([]byte{0xFF}, 1, 1)
	require.EqualValues(t, -1, a.Get(0))

	// 0xFFFF as a 16-bit signed value is -1.
	b := View([]byte{0xFF, 0xFF}, 1, 2)
	require.EqualValues(t, -1, b.Get(0))
}

func TestOwnedCopyWidensAndIsIndependent(t *testing.T) {
	src := View([]byte{0x41, 0x41, 0x42}, 3, 1)
	owned := OwnedCopy(src)
	defer owned.Close()

	require.True(t, owned.IsOwned())
	require.EqualValues(t, 4, owned.ElementWidth())
	require.True(t, owned.Equals(src))
}

func TestEqualsAcrossWidths(t *testing.T) {
	a := View([]byte{1, 0, 2, 0}, 2, 2)
	b := View([]byte{1, 2}, 2, 1)
	require.True(t, a.Equals(b))
	require.True(t, b.Equals(a))

	c := View([]byte{1, 2, 3}, 3, 1)
	require.False(t, a.Equals(c))
}

func TestHashMatchesPerElementFormula(t *testing.T) {
	// result = 0x811C9DC5; for each element: result = (result * 0x01000193) ^ element.
	// Hand-computed for elements [1, 2, 3], mod 2^32.
	h := uint32(0x811C9DC5)
	for _, v := range []uint32{1, 2, 3} {
		h = h*0x01000193 ^ v
	}
	a := View([]byte{1, 2, 3}, 3, 1)
	require.EqualValues(t, int32(h), a.Hash())
}

func TestHashEqualAcrossWidths(t *testing.T) {
	a := View([]byte{1, 0, 2, 0}, 2, 2)
	b := View([]byte{1, 2}, 2, 1)
	require.Equal(t, a.Hash(), b.Hash())

	owned := OwnedCopy(a)
	defer owned.Close()
	require.Equal(t, a.Hash(), owned.Hash())
}

func TestCompare(t *testing.T) {
	a := View([]byte{1, 2, 3}, 3, 1)
	require.Equal(t, 0, a.Compare(a))

	b := View([]byte{1, 2, 4}, 3, 1)
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))

	prefix := View([]byte{1, 2}, 2, 1)
	require.Equal(t, -1, prefix.Compare(a))
	require.Equal(t, 1, a.Compare(prefix))
}

func TestSectionOwnedStaysOwned(t *testing.T) {
	a := OwnedCopy(View([]byte{1, 2, 3, 4}, 4, 1))
	defer a.Close()
	sec := a.Section(1, 2)
	defer sec.Close()
	require.True(t, sec.IsOwned())
	require.EqualValues(t, 2, sec.Get(0))
	require.EqualValues(t, 3, sec.Get(1))
}

func TestSectionViewStaysView(t *testing.T) {
	a := View([]byte{1, 2, 3, 4}, 4, 1)
	sec := a.Section(1, 2)
	require.False(t, sec.IsOwned())
	require.EqualValues(t, 2, sec.Get(0))
	require.EqualValues(t, 3, sec.Get(1))
}

func TestSectionOutOfRangeIsEmpty(t *testing.T) {
	a := View([]byte{1, 2, 3}, 3, 1)
	require.EqualValues(t, 0, a.Section(2, 5).Length())
	require.EqualValues(t, 0, a.Section(-1, 2).Length())
}

func TestEmpty(t *testing.T) {
	e := Empty()
	require.EqualValues(t, 0, e.Length())
	require.EqualValues(t, 0, e.Get(0))
}

func TestCloneRefcountDoesNotDoubleFree(t *testing.T) {
	a := OwnedCopy(View([]byte{1, 2}, 2, 1))
	b := a.Clone()
	a.Close()
	// b still has a live reference; reading through it must not panic or
	// see freed memory.
	require.EqualValues(t, 1, b.Get(0))
	b.Close()
}
