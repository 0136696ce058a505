// Package mem implements a backend.Device that keeps the entire disk image
// in memory. The image can be loaded from and saved to a host file, which
// makes it the simulated-disk backend: mutations only reach the backing
// file on Save or Sync.
package mem

import (
	"errors"
	"fmt"
	"os"

	"github.com/diskfs/go-simplefs/backend"
)

// Device an in-memory sector device
type Device struct {
	sectorSize int
	data       []byte
	path       string
}

// New create an in-memory device of the given geometry, zero-filled, not
// bound to any backing file.
func New(sectorSize int, sectors int64) (*Device, error) {
	if sectorSize <= 0 || sectors <= 0 {
		return nil, fmt.Errorf("invalid device geometry %d x %d", sectors, sectorSize)
	}
	return &Device{
		sectorSize: sectorSize,
		data:       make([]byte, int64(sectorSize)*sectors),
	}, nil
}

// Load create an in-memory device from the contents of a host file. The
// file length must be an exact multiple of sectorSize. Save and Sync write
// back to the same file.
func Load(pathName string, sectorSize int) (*Device, error) {
	if sectorSize <= 0 {
		return nil, fmt.Errorf("invalid sector size %d", sectorSize)
	}
	b, err := os.ReadFile(pathName)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || len(b)%sectorSize != 0 {
		return nil, fmt.Errorf("%s size %d is not a multiple of sector size %d: %w", pathName, len(b), sectorSize, backend.ErrNotSuitable)
	}
	return &Device{
		sectorSize: sectorSize,
		data:       b,
		path:       pathName,
	}, nil
}

// SetPath bind the device to a backing file for subsequent Save and Sync
func (d *Device) SetPath(pathName string) {
	d.path = pathName
}

// Path the backing file the device was loaded from or bound to, or ""
func (d *Device) Path() string {
	return d.path
}

// Save write the image to the given host file
func (d *Device) Save(pathName string) error {
	if pathName == "" {
		return errors.New("must pass file name")
	}
	if err := os.WriteFile(pathName, d.data, 0o666); err != nil {
		return fmt.Errorf("could not save image to %s: %v", pathName, err)
	}
	d.path = pathName
	return nil
}

func (d *Device) SectorSize() int {
	return d.sectorSize
}

func (d *Device) Sectors() int64 {
	return int64(len(d.data)) / int64(d.sectorSize)
}

func (d *Device) checkSector(n int64, b []byte) error {
	if n < 0 || n >= d.Sectors() {
		return fmt.Errorf("sector %d out of range [0, %d)", n, d.Sectors())
	}
	if len(b) < d.sectorSize {
		return fmt.Errorf("buffer size %d smaller than sector size %d", len(b), d.sectorSize)
	}
	return nil
}

func (d *Device) ReadSector(n int64, b []byte) error {
	if err := d.checkSector(n, b); err != nil {
		return err
	}
	copy(b[:d.sectorSize], d.data[n*int64(d.sectorSize):])
	return nil
}

func (d *Device) WriteSector(n int64, b []byte) error {
	if err := d.checkSector(n, b); err != nil {
		return err
	}
	copy(d.data[n*int64(d.sectorSize):(n+1)*int64(d.sectorSize)], b[:d.sectorSize])
	return nil
}

// Sync save the image to its backing file, if it has one
func (d *Device) Sync() error {
	if d.path == "" {
		return nil
	}
	return d.Save(d.path)
}

func (d *Device) Close() error {
	return d.Sync()
}

// interface guard
var _ backend.Device = (*Device)(nil)
