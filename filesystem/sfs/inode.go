package sfs

import (
	"encoding/binary"
	"fmt"
)

type fileType int32

const (
	typeFile fileType = 0
	typeDir  fileType = 1
)

// inode a single inode record. size is the length in bytes for a file, or
// the number of live directory entries for a directory. data holds the
// sector numbers backing the content, in order; 0 marks an unused slot,
// which is unambiguous because sector 0 is always the superblock.
type inode struct {
	size     int32
	fileType fileType
	data     []int32
}

func (in *inode) equal(a *inode) bool {
	if (in == nil) != (a == nil) {
		return false
	}
	if in == nil {
		return true
	}
	if in.size != a.size || in.fileType != a.fileType || len(in.data) != len(a.data) {
		return false
	}
	for i, s := range in.data {
		if a.data[i] != s {
			return false
		}
	}
	return true
}

// sectorsForSize how many data slots are live for a file of the given size
func (g geometry) sectorsForSize(size int32) int {
	return (int(size) + g.sectorSize - 1) / g.sectorSize
}

// inodeFromBytes unmarshal an inode record for the given geometry
func inodeFromBytes(b []byte, g geometry) (*inode, error) {
	if len(b) < g.inodeSize() {
		return nil, fmt.Errorf("inode was %d bytes, less than required %d", len(b), g.inodeSize())
	}
	in := inode{
		size:     int32(binary.LittleEndian.Uint32(b[0:4])),
		fileType: fileType(binary.LittleEndian.Uint32(b[4:8])),
		data:     make([]int32, g.maxSectorsPerFile),
	}
	for i := range in.data {
		in.data[i] = int32(binary.LittleEndian.Uint32(b[8+4*i : 12+4*i]))
	}
	return &in, nil
}

// toBytes marshal the inode record
func (in *inode) toBytes(g geometry) []byte {
	b := make([]byte, g.inodeSize())
	binary.LittleEndian.PutUint32(b[0:4], uint32(in.size))
	binary.LittleEndian.PutUint32(b[4:8], uint32(in.fileType))
	for i, s := range in.data {
		binary.LittleEndian.PutUint32(b[8+4*i:], uint32(s))
	}
	return b
}

// readInode read inode number n from the inode table
func (fs *FileSystem) readInode(n int32) (*inode, error) {
	if n < 0 || int(n) >= fs.geom.maxFiles {
		return nil, fmt.Errorf("inode %d out of range [0, %d)", n, fs.geom.maxFiles)
	}
	sector := fs.geom.inodeTableStart() + int64(int(n)/fs.geom.inodesPerSector())
	buf := make([]byte, fs.geom.sectorSize)
	if err := fs.device.ReadSector(sector, buf); err != nil {
		return nil, fmt.Errorf("could not read inode table sector %d: %v", sector, err)
	}
	offset := (int(n) % fs.geom.inodesPerSector()) * fs.geom.inodeSize()
	in, err := inodeFromBytes(buf[offset:offset+fs.geom.inodeSize()], fs.geom)
	if err != nil {
		return nil, fmt.Errorf("could not parse inode %d: %v", n, err)
	}
	return in, nil
}

// writeInode write inode number n back to the inode table. The owning
// sector is re-read first so neighbouring inodes in the same sector are
// preserved.
func (fs *FileSystem) writeInode(n int32, in *inode) error {
	if n < 0 || int(n) >= fs.geom.maxFiles {
		return fmt.Errorf("inode %d out of range [0, %d)", n, fs.geom.maxFiles)
	}
	sector := fs.geom.inodeTableStart() + int64(int(n)/fs.geom.inodesPerSector())
	buf := make([]byte, fs.geom.sectorSize)
	if err := fs.device.ReadSector(sector, buf); err != nil {
		return fmt.Errorf("could not read inode table sector %d: %v", sector, err)
	}
	offset := (int(n) % fs.geom.inodesPerSector()) * fs.geom.inodeSize()
	copy(buf[offset:], in.toBytes(fs.geom))
	if err := fs.device.WriteSector(sector, buf); err != nil {
		return fmt.Errorf("could not write inode table sector %d: %v", sector, err)
	}
	return nil
}
