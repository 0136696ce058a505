// Package disk provides utilities for working with a single disk image or
// block device carrying a simplefs filesystem: opening and creating the
// backing store, formatting or loading the filesystem, and archiving
// images to and from compressed files.
package disk

import (
	"fmt"
	"os"

	"github.com/diskfs/go-simplefs/backend"
	"github.com/diskfs/go-simplefs/filesystem/sfs"
)

// Type represents the kind of backing store behind a Disk
type Type int

const (
	// File is a file-based disk image
	File Type = iota
	// Device is an OS-managed block device
	Device
)

// Disk is a reference to a single disk image or block device
type Disk struct {
	Backend          backend.Device
	Type             Type
	Path             string
	Size             int64
	LogicalBlocksize int64
}

// DetermineType classify the path as an image file or a block device
func DetermineType(pathName string) (Type, error) {
	info, err := os.Stat(pathName)
	if err != nil {
		return File, fmt.Errorf("could not get info for %s: %v", pathName, err)
	}
	mode := info.Mode()
	switch {
	case mode.IsRegular():
		return File, nil
	case mode&os.ModeDevice != 0:
		return Device, nil
	default:
		return File, fmt.Errorf("device %s is neither a block device nor a regular file", pathName)
	}
}

// New wrap an already-open backend device in a Disk
func New(dev backend.Device, t Type, pathName string) *Disk {
	return &Disk{
		Backend:          dev,
		Type:             t,
		Path:             pathName,
		Size:             dev.Sectors() * int64(dev.SectorSize()),
		LogicalBlocksize: int64(dev.SectorSize()),
	}
}

// GetFilesystem open the filesystem on the disk
func (d *Disk) GetFilesystem() (*sfs.FileSystem, error) {
	return sfs.Read(d.Backend)
}

// CreateFilesystem format the disk with a fresh filesystem
func (d *Disk) CreateFilesystem(p *sfs.Params) (*sfs.FileSystem, error) {
	return sfs.Create(d.Backend, p)
}

// Close flush and release the underlying device
func (d *Disk) Close() error {
	return d.Backend.Close()
}
