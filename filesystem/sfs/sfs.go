// Package sfs implements a small unix-style filesystem over a sector
// device. The disk is split into five consecutive regions: a superblock,
// an inode allocation bitmap, a sector allocation bitmap, the inode table,
// and the data region. Every file or directory is one fixed-size inode
// holding a direct list of data sectors; directories are packed arrays of
// (name, inode) entries stored in their data sectors.
//
// The package is not safe for concurrent use; wrap the FileSystem in a
// lock if more than one goroutine touches it.
package sfs

import (
	"fmt"
	"os"
	"time"

	"github.com/diskfs/go-simplefs/backend"
	"github.com/diskfs/go-simplefs/filesystem"
	"github.com/google/uuid"
)

const (
	// MaxNameLength maximum bytes of a single name, including the
	// terminating NUL of shorter names as stored on disk
	MaxNameLength = 16
	// MaxPathLength maximum bytes of an absolute path, counting a
	// terminating NUL; paths of at most MaxPathLength-1 bytes are accepted
	MaxPathLength = 256
	// MaxOpenFiles size of the open-file table
	MaxOpenFiles = 256

	// rootInode the root directory, allocated at format time
	rootInode int32 = 0

	// DefaultSectorSize default bytes per sector
	DefaultSectorSize = 512
	// DefaultTotalSectors default sectors per image
	DefaultTotalSectors = 2880
	// DefaultMaxFiles default number of inodes
	DefaultMaxFiles = 128
	// DefaultMaxSectorsPerFile default direct sector list length
	DefaultMaxSectorsPerFile = 29
	// DefaultVolumeLabel default label stamped at format time
	DefaultVolumeLabel = "simplefs"
)

// Params control the geometry of a filesystem at format time. The zero
// value of any field falls back to its default.
type Params struct {
	SectorSize        int
	TotalSectors      int64
	MaxFiles          int
	MaxSectorsPerFile int
	VolumeLabel       string
	UUID              *uuid.UUID
}

// geometry fixed layout parameters, from which every region offset derives
type geometry struct {
	sectorSize        int
	totalSectors      int64
	maxFiles          int
	maxSectorsPerFile int
}

func defaultGeometry() geometry {
	return geometry{
		sectorSize:        DefaultSectorSize,
		totalSectors:      DefaultTotalSectors,
		maxFiles:          DefaultMaxFiles,
		maxSectorsPerFile: DefaultMaxSectorsPerFile,
	}
}

// inodeSize bytes per inode record on disk
func (g geometry) inodeSize() int {
	return 8 + 4*g.maxSectorsPerFile
}

// inodesPerSector inodes stored per inode table sector; records never
// straddle a sector boundary
func (g geometry) inodesPerSector() int {
	return g.sectorSize / g.inodeSize()
}

// direntsPerSector directory entries stored per data sector
func (g geometry) direntsPerSector() int {
	return g.sectorSize / DirentSize
}

func (g geometry) inodeBitmapStart() int64 {
	return 1
}

func (g geometry) inodeBitmapSectors() int64 {
	bits := int64(g.sectorSize) * 8
	return (int64(g.maxFiles) + bits - 1) / bits
}

func (g geometry) sectorBitmapStart() int64 {
	return g.inodeBitmapStart() + g.inodeBitmapSectors()
}

func (g geometry) sectorBitmapSectors() int64 {
	bits := int64(g.sectorSize) * 8
	return (g.totalSectors + bits - 1) / bits
}

func (g geometry) inodeTableStart() int64 {
	return g.sectorBitmapStart() + g.sectorBitmapSectors()
}

func (g geometry) inodeTableSectors() int64 {
	ips := int64(g.inodesPerSector())
	return (int64(g.maxFiles) + ips - 1) / ips
}

// dataStart first sector of the data region; everything below it is
// reserved in the sector bitmap at format time
func (g geometry) dataStart() int64 {
	return g.inodeTableStart() + g.inodeTableSectors()
}

func (g geometry) validate() error {
	if g.sectorSize < sbLabelEnd || g.sectorSize < DirentSize {
		return fmt.Errorf("sector size %d too small", g.sectorSize)
	}
	if g.maxFiles < 1 {
		return fmt.Errorf("max files %d must be at least 1", g.maxFiles)
	}
	if g.maxSectorsPerFile < 1 {
		return fmt.Errorf("max sectors per file %d must be at least 1", g.maxSectorsPerFile)
	}
	if g.inodeSize() > g.sectorSize {
		return fmt.Errorf("inode size %d exceeds sector size %d", g.inodeSize(), g.sectorSize)
	}
	if g.totalSectors <= g.dataStart() {
		return fmt.Errorf("%d sectors leave no data region after %d metadata sectors", g.totalSectors, g.dataStart())
	}
	if g.totalSectors > 1<<31-1 {
		return fmt.Errorf("%d sectors cannot be addressed with 32-bit sector numbers", g.totalSectors)
	}
	return nil
}

// FileSystem implements the filesystem.FileSystem interface over a sector
// device. It also carries the open-file table, so everything an operation
// may touch travels in the one handle.
type FileSystem struct {
	device    backend.Device
	geom      geometry
	sb        *superblock
	openFiles [MaxOpenFiles]openEntry
}

// Create format a device with a fresh filesystem and return a handle to
// it. The device geometry must match the requested parameters exactly.
func Create(device backend.Device, p *Params) (*FileSystem, error) {
	if p == nil {
		p = &Params{}
	}
	geom := defaultGeometry()
	if p.SectorSize != 0 {
		geom.sectorSize = p.SectorSize
	}
	if p.TotalSectors != 0 {
		geom.totalSectors = p.TotalSectors
	}
	if p.MaxFiles != 0 {
		geom.maxFiles = p.MaxFiles
	}
	if p.MaxSectorsPerFile != 0 {
		geom.maxSectorsPerFile = p.MaxSectorsPerFile
	}
	if err := geom.validate(); err != nil {
		return nil, err
	}
	if err := checkDevice(device, geom); err != nil {
		return nil, err
	}
	label := p.VolumeLabel
	if label == "" {
		label = DefaultVolumeLabel
	}
	if len(label) > sbLabelEnd-sbLabelStart {
		return nil, fmt.Errorf("label %s longer than %d bytes", label, sbLabelEnd-sbLabelStart)
	}
	fsuuid := p.UUID
	if fsuuid == nil {
		fsuuid2, _ := uuid.NewRandom()
		fsuuid = &fsuuid2
	}

	fs := &FileSystem{
		device: device,
		geom:   geom,
		sb: &superblock{
			version: formatVersion,
			geom:    geom,
			uuid:    *fsuuid,
			label:   label,
		},
	}
	if err := fs.writeSuperblock(); err != nil {
		return nil, err
	}
	// inode 0 is the root; sectors below the data region are reserved
	if err := fs.bitmapInit(geom.inodeBitmapStart(), geom.inodeBitmapSectors(), 1); err != nil {
		return nil, err
	}
	if err := fs.bitmapInit(geom.sectorBitmapStart(), geom.sectorBitmapSectors(), geom.dataStart()); err != nil {
		return nil, err
	}
	zero := make([]byte, geom.sectorSize)
	for s := int64(0); s < geom.inodeTableSectors(); s++ {
		if err := device.WriteSector(geom.inodeTableStart()+s, zero); err != nil {
			return nil, fmt.Errorf("could not zero inode table sector %d: %v", geom.inodeTableStart()+s, err)
		}
	}
	root := inode{
		size:     0,
		fileType: typeDir,
		data:     make([]int32, geom.maxSectorsPerFile),
	}
	if err := fs.writeInode(rootInode, &root); err != nil {
		return nil, err
	}
	return fs, nil
}

// Read open an existing filesystem on a device. The superblock magic must
// match and the recorded geometry must agree with the device; an image
// whose geometry fields are zero is assumed to use the defaults.
func Read(device backend.Device) (*FileSystem, error) {
	buf := make([]byte, device.SectorSize())
	if err := device.ReadSector(0, buf); err != nil {
		return nil, fmt.Errorf("could not read superblock: %v", err)
	}
	sb, err := superblockFromBytes(buf)
	if err != nil {
		return nil, err
	}
	geom := sb.geom
	if geom == (geometry{}) {
		geom = defaultGeometry()
	}
	if err := geom.validate(); err != nil {
		return nil, err
	}
	if err := checkDevice(device, geom); err != nil {
		return nil, err
	}
	return &FileSystem{
		device: device,
		geom:   geom,
		sb:     sb,
	}, nil
}

func checkDevice(device backend.Device, geom geometry) error {
	if device.SectorSize() != geom.sectorSize {
		return fmt.Errorf("device sector size %d does not match filesystem sector size %d: %w", device.SectorSize(), geom.sectorSize, backend.ErrNotSuitable)
	}
	if device.Sectors() != geom.totalSectors {
		return fmt.Errorf("device has %d sectors, filesystem needs %d: %w", device.Sectors(), geom.totalSectors, backend.ErrNotSuitable)
	}
	return nil
}

func (fs *FileSystem) writeSuperblock() error {
	if err := fs.device.WriteSector(0, fs.sb.toBytes(fs.geom.sectorSize)); err != nil {
		return fmt.Errorf("could not write superblock: %v", err)
	}
	return nil
}

// Type return the type of filesystem
func (fs *FileSystem) Type() filesystem.Type {
	return filesystem.TypeSfs
}

// Label the volume label
func (fs *FileSystem) Label() string {
	if fs.sb == nil {
		return ""
	}
	return fs.sb.label
}

// SetLabel change the volume label and persist it
func (fs *FileSystem) SetLabel(label string) error {
	if len(label) > sbLabelEnd-sbLabelStart {
		return fmt.Errorf("label %s longer than %d bytes", label, sbLabelEnd-sbLabelStart)
	}
	fs.sb.label = label
	return fs.writeSuperblock()
}

// UUID the volume UUID stamped at format time
func (fs *FileSystem) UUID() uuid.UUID {
	return fs.sb.uuid
}

// Sync flush the device to stable storage
func (fs *FileSystem) Sync() error {
	return fs.device.Sync()
}

// Close flush the filesystem. Open descriptors hold no dirty state, so
// this is just a sync.
func (fs *FileSystem) Close() error {
	return fs.Sync()
}

// Mkdir make a single directory; the parent must already exist
func (fs *FileSystem) Mkdir(p string) error {
	_, err := fs.create(typeDir, p)
	return err
}

// CreateFile create an empty regular file; the parent directory must
// already exist
func (fs *FileSystem) CreateFile(p string) error {
	_, err := fs.create(typeFile, p)
	return err
}

func (fs *FileSystem) create(t fileType, p string) (int32, error) {
	parent, child, name, err := fs.resolve(p)
	if err != nil {
		return -1, fmt.Errorf("%w %s: %v", ErrCreate, p, err)
	}
	if name == "" {
		return -1, fmt.Errorf("%w %s: path names the root directory", ErrCreate, p)
	}
	if child >= 0 {
		return -1, fmt.Errorf("%w %s: already exists", ErrCreate, p)
	}
	n, err := fs.allocateInode(t)
	if err != nil {
		return -1, fmt.Errorf("%w %s: %v", ErrCreate, p, err)
	}
	if err := fs.appendChild(parent, name, n); err != nil {
		// release the inode again rather than leak it
		_ = fs.freeInode(n)
		return -1, fmt.Errorf("%w %s: %v", ErrCreate, p, err)
	}
	return n, nil
}

// RemoveFile unlink a regular file. The file must not be open.
func (fs *FileSystem) RemoveFile(p string) error {
	return fs.removeEntry(p, typeFile)
}

// RemoveDir unlink an empty directory
func (fs *FileSystem) RemoveDir(p string) error {
	return fs.removeEntry(p, typeDir)
}

// Remove removes the named file or (empty) directory
func (fs *FileSystem) Remove(p string) error {
	_, child, _, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if child < 0 {
		return fmt.Errorf("%w: %s", ErrNoSuchFile, p)
	}
	if child == rootInode {
		return ErrRootDirectory
	}
	in, err := fs.readInode(child)
	if err != nil {
		return err
	}
	return fs.removeEntry(p, in.fileType)
}

func (fs *FileSystem) removeEntry(p string, want fileType) error {
	missing := ErrNoSuchFile
	if want == typeDir {
		missing = ErrNoSuchDirectory
	}
	parent, child, _, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if child < 0 {
		return fmt.Errorf("%w: %s", missing, p)
	}
	if child == rootInode {
		return ErrRootDirectory
	}
	if fs.isOpen(child) {
		return fmt.Errorf("%w: %s", ErrFileInUse, p)
	}
	in, err := fs.readInode(child)
	if err != nil {
		return err
	}
	if in.fileType != want {
		if want == typeFile {
			return fmt.Errorf("%w: %s", ErrNotAFile, p)
		}
		return fmt.Errorf("%w: %s", ErrNotADirectory, p)
	}
	if in.fileType == typeDir && in.size != 0 {
		return fmt.Errorf("%w: %s", ErrDirNotEmpty, p)
	}
	for _, s := range in.data {
		if s != 0 {
			if err := fs.freeSector(s); err != nil {
				return err
			}
		}
	}
	if err := fs.freeInode(child); err != nil {
		return err
	}
	zero := inode{data: make([]int32, fs.geom.maxSectorsPerFile)}
	if err := fs.writeInode(child, &zero); err != nil {
		return err
	}
	return fs.removeChild(parent, child)
}

// ReadDir read the contents of a directory, in on-disk entry order. That is
// insertion order, except that each removal moves the last entry into the
// removed entry's slot.
func (fs *FileSystem) ReadDir(p string) ([]os.FileInfo, error) {
	in, _, err := fs.readDirInode(p)
	if err != nil {
		return nil, err
	}
	entries, err := fs.readDirEntries(in)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, de := range entries {
		ein, err := fs.readInode(de.inode)
		if err != nil {
			return nil, fmt.Errorf("could not read inode %d for %s: %v", de.inode, de.name, err)
		}
		infos = append(infos, newFileInfo(de.name, de.inode, ein))
	}
	return infos, nil
}

// DirSize the directory's content size in bytes: live entries times the
// on-disk entry size
func (fs *FileSystem) DirSize(p string) (int64, error) {
	in, _, err := fs.readDirInode(p)
	if err != nil {
		return -1, err
	}
	return int64(in.size) * DirentSize, nil
}

// DirRead copy the packed on-disk directory entries into buf, which must
// hold at least DirSize bytes. Returns the number of bytes copied.
func (fs *FileSystem) DirRead(p string, buf []byte) (int, error) {
	in, _, err := fs.readDirInode(p)
	if err != nil {
		return -1, err
	}
	need := int(in.size) * DirentSize
	if len(buf) < need {
		return -1, fmt.Errorf("%w: directory %s needs %d bytes", ErrBufferTooSmall, p, need)
	}
	entries, err := fs.readDirEntries(in)
	if err != nil {
		return -1, err
	}
	for i, de := range entries {
		copy(buf[i*DirentSize:], de.toBytes())
	}
	return need, nil
}

// readDirInode resolve a path that must name an existing directory
func (fs *FileSystem) readDirInode(p string) (*inode, int32, error) {
	_, child, _, err := fs.resolve(p)
	if err != nil {
		return nil, -1, err
	}
	if child < 0 {
		return nil, -1, fmt.Errorf("%w: %s", ErrNoSuchDirectory, p)
	}
	in, err := fs.readInode(child)
	if err != nil {
		return nil, -1, err
	}
	if in.fileType != typeDir {
		return nil, -1, fmt.Errorf("%w: %s", ErrNotADirectory, p)
	}
	return in, child, nil
}

// Stat return os.FileInfo about a specific path
func (fs *FileSystem) Stat(p string) (os.FileInfo, error) {
	_, child, name, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}
	if child < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchFile, p)
	}
	in, err := fs.readInode(child)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "/"
	}
	return newFileInfo(name, child, in), nil
}

// FreeInodes count the unallocated inodes
func (fs *FileSystem) FreeInodes() (int64, error) {
	return fs.bitmapCountFree(fs.geom.inodeBitmapStart(), fs.geom.inodeBitmapSectors(), int64(fs.geom.maxFiles))
}

// FreeSectors count the unallocated sectors
func (fs *FileSystem) FreeSectors() (int64, error) {
	return fs.bitmapCountFree(fs.geom.sectorBitmapStart(), fs.geom.sectorBitmapSectors(), fs.geom.totalSectors)
}

// fileInfo os.FileInfo for a single directory entry
type fileInfo struct {
	name  string
	inode int32
	size  int64
	isDir bool
}

func newFileInfo(name string, n int32, in *inode) *fileInfo {
	size := int64(in.size)
	if in.fileType == typeDir {
		size = int64(in.size) * DirentSize
	}
	return &fileInfo{
		name:  name,
		inode: n,
		size:  size,
		isDir: in.fileType == typeDir,
	}
}

func (fi *fileInfo) Name() string {
	return fi.name
}

func (fi *fileInfo) Size() int64 {
	return fi.size
}

func (fi *fileInfo) Mode() os.FileMode {
	if fi.isDir {
		return os.ModeDir | 0o755
	}
	return 0o644
}

// ModTime the filesystem stores no timestamps, so this is always the zero time
func (fi *fileInfo) ModTime() time.Time {
	return time.Time{}
}

func (fi *fileInfo) IsDir() bool {
	return fi.isDir
}

// Sys returns the inode number as an int32
func (fi *fileInfo) Sys() interface{} {
	return fi.inode
}

// interface guard
var _ filesystem.FileSystem = (*FileSystem)(nil)
