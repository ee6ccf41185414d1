package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatMemoryReadWriteRoundTrip(t *testing.T) {
	m := NewFlatMemory(64)
	assert.NoError(t, Write32(m, 8, 0xdeadbeef))
	v, err := Read32(m, AccessLoad, 8)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v)
}

func TestFlatMemoryOutOfRangeReadFaultsWithAccessKindCause(t *testing.T) {
	m := NewFlatMemory(16)

	_, err := Read64(m, AccessLoad, 9) // 9+8 > 16
	var f Fault
	assert.True(t, errors.As(err, &f))
	assert.Equal(t, ExcLoadAccessFault, f.Cause)

	_, err = Read64(m, AccessFetch, 9)
	assert.True(t, errors.As(err, &f))
	assert.Equal(t, ExcInstructionAccessFault, f.Cause)

	err = Write64(m, 9, 0)
	assert.True(t, errors.As(err, &f))
	assert.Equal(t, ExcStoreAccessFault, f.Cause)
}

func TestFlatMemoryBoundaryAddress(t *testing.T) {
	m := NewFlatMemory(16)
	assert.NoError(t, m.WriteAt(16, nil)) // zero-length write at the very edge is in range
	assert.ErrorIs(t, m.WriteAt(16, []byte{1}), ErrOutOfRange)
}

func TestReadWrite16(t *testing.T) {
	m := NewFlatMemory(8)
	assert.NoError(t, Write16(m, 2, 0xabcd))
	v, err := Read16(m, AccessLoad, 2)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xabcd), v)
}
