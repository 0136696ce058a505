package testhelper

import (
	"fmt"
)

type sectorReader func(n int64, b []byte) error
type sectorWriter func(n int64, b []byte) error

// DeviceImpl implement github.com/diskfs/go-simplefs/backend.Device
// used for testing to enable stubbing out devices and injecting I/O errors
type DeviceImpl struct {
	Reader      sectorReader
	Writer      sectorWriter
	Size        int
	SectorCount int64
}

func (d *DeviceImpl) SectorSize() int {
	if d.Size == 0 {
		return 512
	}
	return d.Size
}

func (d *DeviceImpl) Sectors() int64 {
	return d.SectorCount
}

func (d *DeviceImpl) ReadSector(n int64, b []byte) error {
	if d.Reader == nil {
		return fmt.Errorf("DeviceImpl has no Reader")
	}
	return d.Reader(n, b)
}

func (d *DeviceImpl) WriteSector(n int64, b []byte) error {
	if d.Writer == nil {
		return fmt.Errorf("DeviceImpl has no Writer")
	}
	return d.Writer(n, b)
}

func (d *DeviceImpl) Sync() error {
	return nil
}

func (d *DeviceImpl) Close() error {
	return nil
}
