package sfs

import (
	"fmt"
	"io"
	"os"

	"github.com/diskfs/go-simplefs/filesystem"
)

// openEntry one slot of the open-file table. inode 0 marks the slot
// unused; the root directory is inode 0 and can never be opened as a file.
type openEntry struct {
	inode int32
	size  int32
	pos   int32
}

// File represents a single open file. It refers to a slot in the
// filesystem's open-file table; the slot caches the file size and carries
// the read/write position.
type File struct {
	fs *FileSystem
	fd int
}

// OpenFile open a handle to read or write a file.
//
// Supported flags are os.O_RDONLY, os.O_WRONLY, os.O_RDWR, os.O_CREATE and
// os.O_APPEND. The file must exist unless os.O_CREATE is given.
func (fs *FileSystem) OpenFile(p string, flag int) (filesystem.File, error) {
	if flag&^(os.O_RDONLY|os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_APPEND) != 0 {
		return nil, fmt.Errorf("unsupported open flag %#x", flag)
	}
	_, child, _, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	if child < 0 {
		if flag&os.O_CREATE == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchFile, p)
		}
		child, err = fs.create(typeFile, p)
		if err != nil {
			return nil, err
		}
	}
	if child == rootInode {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, p)
	}
	in, err := fs.readInode(child)
	if err != nil {
		return nil, err
	}
	if in.fileType != typeFile {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, p)
	}
	fd := -1
	for i := range fs.openFiles {
		if fs.openFiles[i].inode == 0 {
			fd = i
			break
		}
	}
	if fd < 0 {
		return nil, ErrTooManyOpenFiles
	}
	pos := int32(0)
	if flag&os.O_APPEND != 0 {
		pos = in.size
	}
	fs.openFiles[fd] = openEntry{
		inode: child,
		size:  in.size,
		pos:   pos,
	}
	return &File{fs: fs, fd: fd}, nil
}

// isOpen report whether any descriptor in the table refers to the inode
func (fs *FileSystem) isOpen(n int32) bool {
	for i := range fs.openFiles {
		if fs.openFiles[i].inode == n {
			return true
		}
	}
	return false
}

// entry the open-file slot behind this descriptor
func (fl *File) entry() (*openEntry, error) {
	if fl == nil || fl.fs == nil {
		return nil, os.ErrClosed
	}
	if fl.fd < 0 || fl.fd >= MaxOpenFiles {
		return nil, ErrBadDescriptor
	}
	e := &fl.fs.openFiles[fl.fd]
	if e.inode == 0 {
		return nil, ErrBadDescriptor
	}
	return e, nil
}

// Fd the slot index of this descriptor in the open-file table
func (fl *File) Fd() int {
	return fl.fd
}

// Size the current size of the file as cached by this descriptor
func (fl *File) Size() (int64, error) {
	e, err := fl.entry()
	if err != nil {
		return -1, err
	}
	return int64(e.size), nil
}

// Read reads up to len(b) bytes from the File, starting at the current
// position, and advances the position by the number of bytes read.
// At end of file, Read returns 0, io.EOF.
func (fl *File) Read(b []byte) (int, error) {
	e, err := fl.entry()
	if err != nil {
		return 0, err
	}
	fs := fl.fs
	in, err := fs.readInode(e.inode)
	if err != nil {
		return 0, err
	}
	maxRead := int(e.size) - int(e.pos)
	if maxRead <= 0 {
		return 0, io.EOF
	}
	if len(b) < maxRead {
		maxRead = len(b)
	}
	sectorSize := fs.geom.sectorSize
	g := int(e.pos) / sectorSize
	offset := int(e.pos) % sectorSize
	buf := make([]byte, sectorSize)
	totalRead := 0
	for totalRead < maxRead {
		if g >= len(in.data) || in.data[g] == 0 {
			break
		}
		if err := fs.device.ReadSector(int64(in.data[g]), buf); err != nil {
			return totalRead, fmt.Errorf("could not read sector %d: %v", in.data[g], err)
		}
		toRead := sectorSize - offset
		if toRead > maxRead-totalRead {
			toRead = maxRead - totalRead
		}
		copy(b[totalRead:], buf[offset:offset+toRead])
		totalRead += toRead
		offset = 0
		g++
	}
	e.pos += int32(totalRead)
	var retErr error
	if int(e.pos) >= int(e.size) {
		retErr = io.EOF
	}
	return totalRead, retErr
}

// Write writes len(b) bytes to the File at the current position and
// advances it. Sectors already assigned to the written range are reused;
// sectors past the end of the current list are allocated from the sector
// bitmap. If the write cannot fit in the file's sector list it fails with
// ErrFileTooBig before touching the disk, and an allocation failure midway
// releases every sector taken by this call.
func (fl *File) Write(b []byte) (int, error) {
	e, err := fl.entry()
	if err != nil {
		return 0, err
	}
	fs := fl.fs
	in, err := fs.readInode(e.inode)
	if err != nil {
		return 0, err
	}
	newSize := int(e.pos) + len(b)
	if int(in.size) > newSize {
		newSize = int(in.size)
	}
	if newSize > fs.geom.maxSectorsPerFile*fs.geom.sectorSize {
		return 0, fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrFileTooBig, newSize, fs.geom.maxSectorsPerFile*fs.geom.sectorSize)
	}
	if len(b) == 0 {
		return 0, nil
	}
	sectorSize := fs.geom.sectorSize
	g := int(e.pos) / sectorSize
	offset := int(e.pos) % sectorSize
	buf := make([]byte, sectorSize)
	totalWritten := 0
	var allocated []int32
	// on failure release the sectors this call allocated; the inode has
	// not been persisted, so nothing references them yet
	fail := func(err error) (int, error) {
		for _, s := range allocated {
			_ = fs.freeSector(s)
		}
		return 0, err
	}
	for totalWritten < len(b) {
		toWrite := sectorSize - offset
		if toWrite > len(b)-totalWritten {
			toWrite = len(b) - totalWritten
		}
		if in.data[g] == 0 {
			sector, err := fs.allocateSector()
			if err != nil {
				return fail(err)
			}
			allocated = append(allocated, sector)
			in.data[g] = sector
			for i := range buf {
				buf[i] = 0
			}
		} else if toWrite < sectorSize {
			// partial write into an existing sector keeps its other bytes
			if err := fs.device.ReadSector(int64(in.data[g]), buf); err != nil {
				return fail(fmt.Errorf("could not read sector %d: %v", in.data[g], err))
			}
		}
		copy(buf[offset:], b[totalWritten:totalWritten+toWrite])
		if err := fs.device.WriteSector(int64(in.data[g]), buf); err != nil {
			return fail(fmt.Errorf("could not write sector %d: %v", in.data[g], err))
		}
		totalWritten += toWrite
		offset = 0
		g++
	}
	in.size = int32(newSize)
	if err := fs.writeInode(e.inode, in); err != nil {
		return fail(err)
	}
	e.size = in.size
	e.pos += int32(totalWritten)
	return totalWritten, nil
}

// Seek set the position for the next Read or Write. The resulting
// position must stay within [0, size]; anything else fails with
// ErrSeekOutOfBounds and leaves the position unchanged.
func (fl *File) Seek(offset int64, whence int) (int64, error) {
	e, err := fl.entry()
	if err != nil {
		return -1, err
	}
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = int64(e.pos) + offset
	case io.SeekEnd:
		newPos = int64(e.size) + offset
	default:
		return -1, fmt.Errorf("invalid whence %d", whence)
	}
	if newPos < 0 || newPos > int64(e.size) {
		return int64(e.pos), fmt.Errorf("%w: %d not in [0, %d]", ErrSeekOutOfBounds, newPos, e.size)
	}
	e.pos = int32(newPos)
	return newPos, nil
}

// Close release the descriptor's slot in the open-file table. Using the
// File afterwards fails with os.ErrClosed.
func (fl *File) Close() error {
	e, err := fl.entry()
	if err != nil {
		return err
	}
	*e = openEntry{}
	fl.fs = nil
	return nil
}
