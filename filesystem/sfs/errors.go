package sfs

import "errors"

var (
	// ErrCreate the file or directory could not be created
	ErrCreate = errors.New("cannot create")
	// ErrNoSuchFile no file exists at the given path
	ErrNoSuchFile = errors.New("no such file")
	// ErrNoSuchDirectory no directory exists at the given path
	ErrNoSuchDirectory = errors.New("no such directory")
	// ErrDirNotEmpty the directory still contains entries
	ErrDirNotEmpty = errors.New("directory not empty")
	// ErrRootDirectory the operation is not permitted on the root directory
	ErrRootDirectory = errors.New("cannot remove root directory")
	// ErrFileInUse the file is held open by at least one descriptor
	ErrFileInUse = errors.New("file in use")
	// ErrTooManyOpenFiles the open-file table is full
	ErrTooManyOpenFiles = errors.New("too many open files")
	// ErrBadDescriptor the descriptor is out of range or not in use
	ErrBadDescriptor = errors.New("bad file descriptor")
	// ErrSeekOutOfBounds the seek target is outside [0, size]
	ErrSeekOutOfBounds = errors.New("seek position out of bounds")
	// ErrFileTooBig the file would exceed its maximum sector list
	ErrFileTooBig = errors.New("file too big")
	// ErrNoSpace no free inode or sector is left
	ErrNoSpace = errors.New("no space left on device")
	// ErrBufferTooSmall the provided buffer cannot hold the result
	ErrBufferTooSmall = errors.New("buffer too small")
	// ErrInvalidName the path component contains illegal bytes or is too long
	ErrInvalidName = errors.New("invalid name")
	// ErrNotAFile the path names a directory where a file is required
	ErrNotAFile = errors.New("not a file")
	// ErrNotADirectory the path names a file where a directory is required
	ErrNotADirectory = errors.New("not a directory")
)
