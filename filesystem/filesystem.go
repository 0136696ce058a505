// Package filesystem provides the interfaces and shared types for filesystem
// implementations. The interesting implementation is in the subpackage
// github.com/diskfs/go-simplefs/filesystem/sfs
package filesystem

import (
	"os"
)

// FileSystem is a reference to a single filesystem on a device
type FileSystem interface {
	// Type return the type of filesystem
	Type() Type
	// Mkdir make a directory; the parent must already exist
	Mkdir(pathname string) error
	// ReadDir read the contents of a directory
	ReadDir(pathname string) ([]os.FileInfo, error)
	// OpenFile open a handle to read or write to a file
	OpenFile(pathname string, flag int) (File, error)
	// Remove removes the named file or (empty) directory.
	Remove(pathname string) error
	// Label get the label for the filesystem, or "" if none. Be careful to trim it, as it may contain
	// leading or following whitespace. The label is passed as-is and not cleaned up at all.
	Label() string
	// SetLabel changes the label on the writable filesystem. Different file system may hav different
	// length constraints.
	SetLabel(label string) error
}

// Type represents the type of filesystem this is
type Type int

const (
	// TypeSfs is the simplefs filesystem
	TypeSfs Type = iota
)
