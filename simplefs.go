// Package simplefs implements methods for creating and manipulating disk
// images carrying the simplefs filesystem: a small unix-style filesystem
// with a superblock, two allocation bitmaps, a fixed inode table, and a
// flat data region, layered over any sector-addressed backing store.
//
// Some examples:
//
// 1. Create a disk image with a filesystem using the default geometry,
// then make a directory and write a file into it.
//
//	d, err := simplefs.Create(diskImg, sfs.DefaultSectorSize, sfs.DefaultTotalSectors)
//	fs, err := d.CreateFilesystem(nil)
//	err = fs.Mkdir("/docs")
//	f, err := fs.OpenFile("/docs/hello", os.O_CREATE|os.O_RDWR)
//	_, err = f.Write([]byte("hello world"))
//
// 2. Boot against a backing file, formatting it only when it does not
// exist yet, and flush mutations back with Sync.
//
//	fs, err := simplefs.Boot(diskImg)
//	...
//	err = fs.Sync()
package simplefs

import (
	"errors"
	"fmt"
	"os"

	"github.com/diskfs/go-simplefs/backend/file"
	"github.com/diskfs/go-simplefs/backend/mem"
	"github.com/diskfs/go-simplefs/disk"
	"github.com/diskfs/go-simplefs/filesystem/sfs"
)

// Open a Disk from a path to a device or image file. Should pass a path to
// a block device e.g. /dev/sda or a path to a file /tmp/foo.img. The
// provided device must exist at the time you call Open.
func Open(device string) (*disk.Disk, error) {
	return OpenWithSectorSize(device, sfs.DefaultSectorSize)
}

// OpenWithSectorSize open a Disk using a non-default sector size. For a
// block device the size must match the device's logical sector size.
func OpenWithSectorSize(device string, sectorSize int) (*disk.Disk, error) {
	if device == "" {
		return nil, errors.New("must pass device name")
	}
	t, err := disk.DetermineType(device)
	if err != nil {
		return nil, err
	}
	if t == disk.Device {
		f, err := os.Open(device)
		if err != nil {
			return nil, fmt.Errorf("could not open device %s: %v", device, err)
		}
		logical, _, err := getSectorSizes(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("unable to get sector sizes for device %s: %v", device, err)
		}
		if logical != int64(sectorSize) {
			return nil, fmt.Errorf("device %s logical sector size %d does not match requested %d", device, logical, sectorSize)
		}
	}
	dev, err := file.OpenFromPath(device, sectorSize, false)
	if err != nil {
		return nil, err
	}
	return disk.New(dev, t, device), nil
}

// Create a Disk image file of the given geometry. The file must not exist
// at the time you call Create.
func Create(device string, sectorSize int, sectors int64) (*disk.Disk, error) {
	if device == "" {
		return nil, errors.New("must pass device name")
	}
	dev, err := file.CreateFromPath(device, sectorSize, sectors)
	if err != nil {
		return nil, err
	}
	return disk.New(dev, disk.File, device), nil
}

// Boot bind a filesystem to a backing file the simulated-disk way: the
// whole image is held in memory and written back on Sync. A missing
// backing file is created and formatted with the default geometry; an
// existing one must be a valid image of the right size.
func Boot(pathName string) (*sfs.FileSystem, error) {
	return BootWithParams(pathName, nil)
}

// BootWithParams is Boot with explicit geometry for the fresh-format case
func BootWithParams(pathName string, p *sfs.Params) (*sfs.FileSystem, error) {
	if pathName == "" {
		return nil, errors.New("must pass backing file name")
	}
	sectorSize := sfs.DefaultSectorSize
	totalSectors := int64(sfs.DefaultTotalSectors)
	if p != nil && p.SectorSize != 0 {
		sectorSize = p.SectorSize
	}
	if p != nil && p.TotalSectors != 0 {
		totalSectors = p.TotalSectors
	}
	if _, err := os.Stat(pathName); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("could not get info for %s: %v", pathName, err)
		}
		dev, err := mem.New(sectorSize, totalSectors)
		if err != nil {
			return nil, err
		}
		fs, err := sfs.Create(dev, p)
		if err != nil {
			return nil, err
		}
		if err := dev.Save(pathName); err != nil {
			return nil, err
		}
		return fs, nil
	}
	dev, err := mem.Load(pathName, sectorSize)
	if err != nil {
		return nil, err
	}
	return sfs.Read(dev)
}
