package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// these constants should be part of "golang.org/x/sys/unix", but aren't, yet
const (
	dkiocgetblocksize  = 0x40046418
	dkiocgetblockcount = 0x40086419
)

// deviceSize the size in bytes of a block device, via ioctl
func deviceSize(f *os.File) (int64, error) {
	fd := int(f.Fd())
	blocksize, err := unix.IoctlGetInt(fd, dkiocgetblocksize)
	if err != nil {
		return 0, err
	}
	blockcount, err := unix.IoctlGetInt(fd, dkiocgetblockcount)
	if err != nil {
		return 0, err
	}
	return int64(blocksize) * int64(blockcount), nil
}
