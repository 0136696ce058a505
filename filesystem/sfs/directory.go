package sfs

import (
	"fmt"
)

// Directory entries are packed DirentSize records across the data sectors
// of a directory inode, in insertion order. The inode's size field counts
// live entries; removal keeps the array packed by moving the last entry
// into the vacated slot.

// readDirEntries load all live entries of a directory inode
func (fs *FileSystem) readDirEntries(in *inode) ([]*directoryEntry, error) {
	if in.fileType != typeDir {
		return nil, ErrNotADirectory
	}
	dps := fs.geom.direntsPerSector()
	entries := make([]*directoryEntry, 0, in.size)
	buf := make([]byte, fs.geom.sectorSize)
	remaining := int(in.size)
	for g := 0; remaining > 0; g++ {
		if g >= len(in.data) || in.data[g] == 0 {
			return nil, fmt.Errorf("directory inode claims %d entries but sector slot %d is unallocated", in.size, g)
		}
		if err := fs.device.ReadSector(int64(in.data[g]), buf); err != nil {
			return nil, fmt.Errorf("could not read directory sector %d: %v", in.data[g], err)
		}
		count := dps
		if remaining < count {
			count = remaining
		}
		for e := 0; e < count; e++ {
			de, err := direntFromBytes(buf[e*DirentSize:])
			if err != nil {
				return nil, err
			}
			entries = append(entries, de)
		}
		remaining -= count
	}
	return entries, nil
}

// findChild scan a directory inode for an entry with an exact byte-equal
// name match. Returns the entry's inode number, or -1 if no entry matches.
func (fs *FileSystem) findChild(in *inode, name string) (int32, error) {
	entries, err := fs.readDirEntries(in)
	if err != nil {
		return -1, err
	}
	for _, de := range entries {
		if de.name == name {
			return de.inode, nil
		}
	}
	return -1, nil
}

// appendChild add an entry at index size of the parent directory,
// allocating a fresh data sector when the previous one is full. The entry
// sector is persisted before the parent inode, so a failure in between
// leaves the new entry invisible.
func (fs *FileSystem) appendChild(parentNum int32, name string, childNum int32) error {
	parent, err := fs.readInode(parentNum)
	if err != nil {
		return err
	}
	if parent.fileType != typeDir {
		return ErrNotADirectory
	}
	dps := fs.geom.direntsPerSector()
	g := int(parent.size) / dps
	if g >= fs.geom.maxSectorsPerFile {
		return fmt.Errorf("directory full: %w", ErrNoSpace)
	}
	buf := make([]byte, fs.geom.sectorSize)
	var allocated int32
	if int(parent.size)%dps == 0 {
		// entry opens a fresh sector
		sector, err := fs.allocateSector()
		if err != nil {
			return err
		}
		allocated = sector
		parent.data[g] = sector
	} else if err := fs.device.ReadSector(int64(parent.data[g]), buf); err != nil {
		return fmt.Errorf("could not read directory sector %d: %v", parent.data[g], err)
	}
	de := directoryEntry{name: name, inode: childNum}
	offset := (int(parent.size) % dps) * DirentSize
	copy(buf[offset:], de.toBytes())
	if err := fs.device.WriteSector(int64(parent.data[g]), buf); err != nil {
		if allocated != 0 {
			_ = fs.freeSector(allocated)
		}
		return fmt.Errorf("could not write directory sector %d: %v", parent.data[g], err)
	}
	parent.size++
	if err := fs.writeInode(parentNum, parent); err != nil {
		if allocated != 0 {
			_ = fs.freeSector(allocated)
		}
		return err
	}
	return nil
}

// removeChild delete the entry referencing childNum from the parent
// directory. The last live entry is moved into the vacated slot so the
// entry array stays packed, and a sector emptied by the removal is freed.
func (fs *FileSystem) removeChild(parentNum, childNum int32) error {
	parent, err := fs.readInode(parentNum)
	if err != nil {
		return err
	}
	entries, err := fs.readDirEntries(parent)
	if err != nil {
		return err
	}
	target := -1
	for i, de := range entries {
		if de.inode == childNum {
			target = i
			break
		}
	}
	if target < 0 {
		return fmt.Errorf("inode %d has no entry in directory inode %d", childNum, parentNum)
	}
	dps := fs.geom.direntsPerSector()
	last := int(parent.size) - 1
	buf := make([]byte, fs.geom.sectorSize)
	if target != last {
		// move the last entry into the hole
		g := target / dps
		if err := fs.device.ReadSector(int64(parent.data[g]), buf); err != nil {
			return fmt.Errorf("could not read directory sector %d: %v", parent.data[g], err)
		}
		copy(buf[(target%dps)*DirentSize:], entries[last].toBytes())
		if err := fs.device.WriteSector(int64(parent.data[g]), buf); err != nil {
			return fmt.Errorf("could not write directory sector %d: %v", parent.data[g], err)
		}
	}
	// clear the now-stale last slot
	lastGroup := last / dps
	if err := fs.device.ReadSector(int64(parent.data[lastGroup]), buf); err != nil {
		return fmt.Errorf("could not read directory sector %d: %v", parent.data[lastGroup], err)
	}
	zero := make([]byte, DirentSize)
	copy(buf[(last%dps)*DirentSize:], zero)
	if err := fs.device.WriteSector(int64(parent.data[lastGroup]), buf); err != nil {
		return fmt.Errorf("could not write directory sector %d: %v", parent.data[lastGroup], err)
	}
	if last%dps == 0 {
		// the removed entry was alone in its sector
		if err := fs.freeSector(parent.data[lastGroup]); err != nil {
			return err
		}
		parent.data[lastGroup] = 0
	}
	parent.size--
	return fs.writeInode(parentNum, parent)
}
