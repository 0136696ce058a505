package sfs

import (
	"fmt"
	"math/bits"

	"github.com/diskfs/go-simplefs/util/bitmap"
)

// The two allocation bitmaps live in fixed sector runs between the
// superblock and the inode table. Every mutation here is a read-modify-write
// of exactly one sector, so the on-disk maps stay consistent between calls.

// bitmapInit write a bitmap spanning count sectors starting at start, with
// the first reserved bits set and everything else clear.
func (fs *FileSystem) bitmapInit(start, count int64, reserved int64) error {
	bitsPerSector := int64(fs.geom.sectorSize) * 8
	for s := int64(0); s < count; s++ {
		bm := bitmap.NewBytes(fs.geom.sectorSize)
		left := reserved - s*bitsPerSector
		if left > 0 {
			if left > bitsPerSector {
				left = bitsPerSector
			}
			if err := bm.SetRange(int(left)); err != nil {
				return err
			}
		}
		if err := fs.device.WriteSector(start+s, bm.ToBytes()); err != nil {
			return fmt.Errorf("could not write bitmap sector %d: %v", start+s, err)
		}
	}
	return nil
}

// bitmapFirstUnused find the first clear bit within the first totalBits
// bits of the bitmap at start, set it, persist the owning sector, and
// return its index. Returns -1 if every bit within totalBits is set.
func (fs *FileSystem) bitmapFirstUnused(start, count, totalBits int64) (int64, error) {
	bitsPerSector := int64(fs.geom.sectorSize) * 8
	buf := make([]byte, fs.geom.sectorSize)
	for s := int64(0); s < count; s++ {
		left := totalBits - s*bitsPerSector
		if left <= 0 {
			break
		}
		if left > bitsPerSector {
			left = bitsPerSector
		}
		if err := fs.device.ReadSector(start+s, buf); err != nil {
			return -1, fmt.Errorf("could not read bitmap sector %d: %v", start+s, err)
		}
		bm := bitmap.FromBytes(buf)
		free := bm.FirstFree(int(left))
		if free < 0 {
			continue
		}
		if err := bm.Set(free); err != nil {
			return -1, err
		}
		if err := fs.device.WriteSector(start+s, bm.ToBytes()); err != nil {
			return -1, fmt.Errorf("could not write bitmap sector %d: %v", start+s, err)
		}
		return s*bitsPerSector + int64(free), nil
	}
	return -1, nil
}

// bitmapReset clear a single bit and persist the owning sector
func (fs *FileSystem) bitmapReset(start, count, index int64) error {
	bitsPerSector := int64(fs.geom.sectorSize) * 8
	s := index / bitsPerSector
	if index < 0 || s >= count {
		return fmt.Errorf("bit %d out of range for %d sector bitmap", index, count)
	}
	buf := make([]byte, fs.geom.sectorSize)
	if err := fs.device.ReadSector(start+s, buf); err != nil {
		return fmt.Errorf("could not read bitmap sector %d: %v", start+s, err)
	}
	bm := bitmap.FromBytes(buf)
	if err := bm.Clear(int(index - s*bitsPerSector)); err != nil {
		return err
	}
	if err := fs.device.WriteSector(start+s, bm.ToBytes()); err != nil {
		return fmt.Errorf("could not write bitmap sector %d: %v", start+s, err)
	}
	return nil
}

// bitmapCountFree count the clear bits within the first totalBits bits of
// the bitmap at start
func (fs *FileSystem) bitmapCountFree(start, count, totalBits int64) (int64, error) {
	bitsPerSector := int64(fs.geom.sectorSize) * 8
	buf := make([]byte, fs.geom.sectorSize)
	var free int64
	for s := int64(0); s < count; s++ {
		left := totalBits - s*bitsPerSector
		if left <= 0 {
			break
		}
		if left > bitsPerSector {
			left = bitsPerSector
		}
		if err := fs.device.ReadSector(start+s, buf); err != nil {
			return -1, fmt.Errorf("could not read bitmap sector %d: %v", start+s, err)
		}
		for i := int64(0); i < left; i += 8 {
			b := buf[i/8]
			n := left - i
			if n < 8 {
				// ignore bits beyond totalBits in the final byte
				b |= 0xff >> n
			}
			free += int64(8 - bits.OnesCount8(b))
		}
	}
	return free, nil
}

// allocateInode take the first free inode number and zero its record with
// the given type. Returns ErrNoSpace when the inode table is full.
func (fs *FileSystem) allocateInode(t fileType) (int32, error) {
	n, err := fs.bitmapFirstUnused(fs.geom.inodeBitmapStart(), fs.geom.inodeBitmapSectors(), int64(fs.geom.maxFiles))
	if err != nil {
		return -1, err
	}
	if n < 0 {
		return -1, ErrNoSpace
	}
	in := inode{
		size:     0,
		fileType: t,
		data:     make([]int32, fs.geom.maxSectorsPerFile),
	}
	if err := fs.writeInode(int32(n), &in); err != nil {
		// do not leak the bit on a failed table write
		_ = fs.bitmapReset(fs.geom.inodeBitmapStart(), fs.geom.inodeBitmapSectors(), n)
		return -1, err
	}
	return int32(n), nil
}

// freeInode release an inode number back to the bitmap
func (fs *FileSystem) freeInode(n int32) error {
	return fs.bitmapReset(fs.geom.inodeBitmapStart(), fs.geom.inodeBitmapSectors(), int64(n))
}

// allocateSector take the first free data sector. Returns ErrNoSpace when
// the disk is full.
func (fs *FileSystem) allocateSector() (int32, error) {
	n, err := fs.bitmapFirstUnused(fs.geom.sectorBitmapStart(), fs.geom.sectorBitmapSectors(), fs.geom.totalSectors)
	if err != nil {
		return -1, err
	}
	if n < 0 {
		return -1, ErrNoSpace
	}
	return int32(n), nil
}

// freeSector release a data sector back to the bitmap
func (fs *FileSystem) freeSector(n int32) error {
	return fs.bitmapReset(fs.geom.sectorBitmapStart(), fs.geom.sectorBitmapSectors(), int64(n))
}
