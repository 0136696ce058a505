// Package file implements a backend.Device directly over a host file or a
// block device. Every sector access is a single ReadAt/WriteAt against the
// underlying file; nothing is cached.
package file

import (
	"errors"
	"fmt"
	"os"

	"github.com/diskfs/go-simplefs/backend"
)

type fileDevice struct {
	f          *os.File
	sectorSize int
	sectors    int64
	readOnly   bool
}

// New create a backend.Device over an open file. The file length must be an
// exact multiple of sectorSize.
func New(f *os.File, sectorSize int, readOnly bool) (backend.Device, error) {
	if sectorSize <= 0 {
		return nil, fmt.Errorf("invalid sector size %d", sectorSize)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not get info for %s: %v", f.Name(), err)
	}
	size := info.Size()
	if info.Mode()&os.ModeDevice != 0 {
		size, err = deviceSize(f)
		if err != nil {
			return nil, fmt.Errorf("unable to get size of block device %s: %v", f.Name(), err)
		}
	}
	if size <= 0 || size%int64(sectorSize) != 0 {
		return nil, fmt.Errorf("%s size %d is not a multiple of sector size %d: %w", f.Name(), size, sectorSize, backend.ErrNotSuitable)
	}
	return &fileDevice{
		f:          f,
		sectorSize: sectorSize,
		sectors:    size / int64(sectorSize),
		readOnly:   readOnly,
	}, nil
}

// OpenFromPath create a backend.Device from a path to a device or image
// file. Should pass a path to a block device e.g. /dev/sda or a path to a
// file /tmp/foo.img. The provided device/file must exist.
func OpenFromPath(pathName string, sectorSize int, readOnly bool) (backend.Device, error) {
	if pathName == "" {
		return nil, errors.New("must pass device or file name")
	}
	if _, err := os.Stat(pathName); os.IsNotExist(err) {
		return nil, fmt.Errorf("provided device/file %s does not exist", pathName)
	}

	openMode := os.O_RDONLY
	if !readOnly {
		openMode = os.O_RDWR
	}
	f, err := os.OpenFile(pathName, openMode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open device %s with mode %v: %w", pathName, openMode, err)
	}
	return New(f, sectorSize, readOnly)
}

// CreateFromPath create a zero-filled image file of the given geometry and
// return a backend.Device over it. The file must not already exist.
func CreateFromPath(pathName string, sectorSize int, sectors int64) (backend.Device, error) {
	if pathName == "" {
		return nil, errors.New("must pass file name")
	}
	if sectorSize <= 0 || sectors <= 0 {
		return nil, errors.New("must pass valid device geometry to create")
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create device %s: %v", pathName, err)
	}
	if err := f.Truncate(int64(sectorSize) * sectors); err != nil {
		return nil, fmt.Errorf("could not expand device %s to size %d: %v", pathName, int64(sectorSize)*sectors, err)
	}
	return New(f, sectorSize, false)
}

func (d *fileDevice) SectorSize() int {
	return d.sectorSize
}

func (d *fileDevice) Sectors() int64 {
	return d.sectors
}

func (d *fileDevice) checkSector(n int64, b []byte) error {
	if n < 0 || n >= d.sectors {
		return fmt.Errorf("sector %d out of range [0, %d)", n, d.sectors)
	}
	if len(b) < d.sectorSize {
		return fmt.Errorf("buffer size %d smaller than sector size %d", len(b), d.sectorSize)
	}
	return nil
}

func (d *fileDevice) ReadSector(n int64, b []byte) error {
	if err := d.checkSector(n, b); err != nil {
		return err
	}
	if _, err := d.f.ReadAt(b[:d.sectorSize], n*int64(d.sectorSize)); err != nil {
		return fmt.Errorf("could not read sector %d: %v", n, err)
	}
	return nil
}

func (d *fileDevice) WriteSector(n int64, b []byte) error {
	if d.readOnly {
		return backend.ErrReadOnlyDevice
	}
	if err := d.checkSector(n, b); err != nil {
		return err
	}
	if _, err := d.f.WriteAt(b[:d.sectorSize], n*int64(d.sectorSize)); err != nil {
		return fmt.Errorf("could not write sector %d: %v", n, err)
	}
	return nil
}

func (d *fileDevice) Sync() error {
	if d.readOnly {
		return nil
	}
	return d.f.Sync()
}

func (d *fileDevice) Close() error {
	return d.f.Close()
}
