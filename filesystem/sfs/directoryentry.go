package sfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DirentSize bytes per directory entry on disk: the name field plus a
// 32-bit inode number
const DirentSize = MaxNameLength + 4

// directoryEntry is a single (name, inode) pair in a directory
type directoryEntry struct {
	name  string
	inode int32
}

// direntFromBytes unmarshal a directory entry. The name is NUL-terminated
// when shorter than the name field.
func direntFromBytes(b []byte) (*directoryEntry, error) {
	if len(b) < DirentSize {
		return nil, fmt.Errorf("directory entry was %d bytes, less than required %d", len(b), DirentSize)
	}
	name := b[:MaxNameLength]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return &directoryEntry{
		name:  string(name),
		inode: int32(binary.LittleEndian.Uint32(b[MaxNameLength : MaxNameLength+4])),
	}, nil
}

// toBytes marshal a directory entry
func (de *directoryEntry) toBytes() []byte {
	b := make([]byte, DirentSize)
	copy(b[:MaxNameLength-1], de.name)
	binary.LittleEndian.PutUint32(b[MaxNameLength:], uint32(de.inode))
	return b
}
