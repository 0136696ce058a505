package sfs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// magic value at byte 0 of the superblock, little-endian
const magic uint32 = 0xdeadbeef

// current format version
const formatVersion uint16 = 1

// byte offsets within the superblock sector
const (
	sbMagicStart   = 0
	sbVersionStart = 4
	sbGeomStart    = 8
	sbUUIDStart    = 24
	sbLabelStart   = 40
	sbLabelEnd     = 56
)

// superblock describes the filesystem. Only the magic is mandatory on
// disk; the geometry fields make an image self-describing, and a zeroed
// geometry falls back to the defaults compiled into this package.
type superblock struct {
	version uint16
	geom    geometry
	uuid    uuid.UUID
	label   string
}

func (sb *superblock) equal(a *superblock) bool {
	if (sb == nil) != (a == nil) {
		return false
	}
	if sb == nil {
		return true
	}
	return *sb == *a
}

// superblockFromBytes read the superblock from a raw disk sector
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < sbLabelEnd {
		return nil, fmt.Errorf("superblock was %d bytes, less than minimum %d", len(b), sbLabelEnd)
	}
	if m := binary.LittleEndian.Uint32(b[sbMagicStart : sbMagicStart+4]); m != magic {
		return nil, fmt.Errorf("invalid superblock magic %#08x", m)
	}
	sb := superblock{
		version: binary.LittleEndian.Uint16(b[sbVersionStart : sbVersionStart+2]),
		geom: geometry{
			sectorSize:        int(binary.LittleEndian.Uint32(b[sbGeomStart : sbGeomStart+4])),
			totalSectors:      int64(binary.LittleEndian.Uint32(b[sbGeomStart+4 : sbGeomStart+8])),
			maxFiles:          int(binary.LittleEndian.Uint32(b[sbGeomStart+8 : sbGeomStart+12])),
			maxSectorsPerFile: int(binary.LittleEndian.Uint32(b[sbGeomStart+12 : sbGeomStart+16])),
		},
	}
	copy(sb.uuid[:], b[sbUUIDStart:sbUUIDStart+16])
	label := b[sbLabelStart:sbLabelEnd]
	if i := bytes.IndexByte(label, 0); i >= 0 {
		label = label[:i]
	}
	sb.label = string(label)
	return &sb, nil
}

// toBytes marshal the superblock into a zero-padded sector
func (sb *superblock) toBytes(sectorSize int) []byte {
	b := make([]byte, sectorSize)
	binary.LittleEndian.PutUint32(b[sbMagicStart:], magic)
	binary.LittleEndian.PutUint16(b[sbVersionStart:], sb.version)
	binary.LittleEndian.PutUint32(b[sbGeomStart:], uint32(sb.geom.sectorSize))
	binary.LittleEndian.PutUint32(b[sbGeomStart+4:], uint32(sb.geom.totalSectors))
	binary.LittleEndian.PutUint32(b[sbGeomStart+8:], uint32(sb.geom.maxFiles))
	binary.LittleEndian.PutUint32(b[sbGeomStart+12:], uint32(sb.geom.maxSectorsPerFile))
	copy(b[sbUUIDStart:sbUUIDStart+16], sb.uuid[:])
	copy(b[sbLabelStart:sbLabelEnd], sb.label)
	return b
}
