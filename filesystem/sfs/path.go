package sfs

import (
	"fmt"
	"strings"
)

// validateName check a single path component: non-empty, at most
// MaxNameLength-1 bytes, ASCII letters, digits, '.', '-' and '_' only.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxNameLength-1 {
		return fmt.Errorf("%w: %s longer than %d bytes", ErrInvalidName, name, MaxNameLength-1)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '_':
		default:
			return fmt.Errorf("%w: %q contains illegal byte %#02x", ErrInvalidName, name, c)
		}
	}
	return nil
}

// splitPath split an absolute path into components, collapsing repeated
// separators
func splitPath(p string) []string {
	parts := make([]string, 0, 8)
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// resolve walk an absolute path through the directory tree.
//
// On success it returns the inode of the final component's parent, the
// inode of the final component itself or -1 if it does not exist, and the
// final component's name. The bare root path returns (0, 0, ""). Any
// missing or non-directory intermediate component, invalid component name,
// or malformed path is an error.
func (fs *FileSystem) resolve(p string) (parent, child int32, lastName string, err error) {
	if !strings.HasPrefix(p, "/") {
		return -1, -1, "", fmt.Errorf("%w: path %s is not absolute", ErrInvalidName, p)
	}
	if len(p) > MaxPathLength-1 {
		return -1, -1, "", fmt.Errorf("%w: path longer than %d bytes", ErrInvalidName, MaxPathLength-1)
	}
	parts := splitPath(p)
	if len(parts) == 0 {
		return 0, 0, "", nil
	}
	parent, child = -1, 0
	for _, name := range parts {
		if err := validateName(name); err != nil {
			return -1, -1, "", err
		}
		if child < 0 {
			// the previous component did not exist
			return -1, -1, "", fmt.Errorf("%w: %s", ErrNoSuchDirectory, p)
		}
		parent = child
		in, err := fs.readInode(parent)
		if err != nil {
			return -1, -1, "", err
		}
		child, err = fs.findChild(in, name)
		if err != nil {
			return -1, -1, "", err
		}
		lastName = name
	}
	return parent, child, lastName, nil
}
