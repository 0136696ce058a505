package sfs

import (
	"testing"

	"github.com/diskfs/go-simplefs/backend/mem"
	"github.com/stretchr/testify/require"
)

// newTestFS a freshly formatted filesystem with the default geometry over
// an in-memory device
func newTestFS(t *testing.T) *FileSystem {
	t.Helper()
	dev, err := mem.New(DefaultSectorSize, DefaultTotalSectors)
	require.NoError(t, err, "creating device failed")
	fs, err := Create(dev, nil)
	require.NoError(t, err, "formatting failed")
	return fs
}

// newSmallTestFS a filesystem tiny enough to run out of inodes and sectors
// quickly: 8 inodes and a handful of data sectors
func newSmallTestFS(t *testing.T, totalSectors int64) *FileSystem {
	t.Helper()
	p := &Params{
		MaxFiles:     8,
		TotalSectors: totalSectors,
	}
	dev, err := mem.New(DefaultSectorSize, totalSectors)
	require.NoError(t, err, "creating device failed")
	fs, err := Create(dev, p)
	require.NoError(t, err, "formatting failed")
	return fs
}
