// Package backend provides the block device contract the filesystem is
// built on: a flat array of fixed-size sectors addressed by index.
package backend

import "errors"

var (
	ErrIncorrectOpenMode = errors.New("disk file or device not open for write")
	ErrNotSuitable       = errors.New("backing file is not suitable")
	ErrReadOnlyDevice    = errors.New("device not open for write")
)

// Device is a sector-addressed block device. Reads and writes are always
// whole sectors; there is no byte-granular access.
type Device interface {
	// SectorSize the size of a single sector in bytes
	SectorSize() int
	// Sectors the number of sectors on the device
	Sectors() int64
	// ReadSector read sector n into b; b must be at least SectorSize() bytes
	ReadSector(n int64, b []byte) error
	// WriteSector write the first SectorSize() bytes of b to sector n
	WriteSector(n int64, b []byte) error
	// Sync flush any buffered state to stable storage
	Sync() error
	// Close release the device; the device is unusable afterwards
	Close() error
}
