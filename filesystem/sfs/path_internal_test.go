package sfs

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"foo", true},
		{"FOO.bar-baz_9", true},
		{strings.Repeat("a", MaxNameLength-1), true},
		{strings.Repeat("a", MaxNameLength), false},
		{"", false},
		{"with space", false},
		{"semi;colon", false},
		{"star*", false},
		{"caf\xc3\xa9", false},
		{"tab\there", false},
	}
	for _, tt := range tests {
		err := validateName(tt.name)
		if (err == nil) != tt.ok {
			t.Errorf("validateName(%q): expected ok=%v, got %v", tt.name, tt.ok, err)
		}
		if err != nil && !errors.Is(err, ErrInvalidName) {
			t.Errorf("validateName(%q): error %v is not ErrInvalidName", tt.name, err)
		}
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path     string
		expected []string
	}{
		{"/", []string{}},
		{"/a", []string{"a"}},
		{"/a/b/c", []string{"a", "b", "c"}},
		{"//a///b/", []string{"a", "b"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.expected, splitPath(tt.path)); diff != "" {
			t.Errorf("splitPath(%q) mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestResolve(t *testing.T) {
	fs := newTestFS(t)
	dirInode, err := fs.create(typeDir, "/a")
	require.NoError(t, err)
	fileInode, err := fs.create(typeFile, "/a/f")
	require.NoError(t, err)

	tests := []struct {
		path     string
		parent   int32
		child    int32
		lastName string
		err      error
	}{
		{"/", 0, 0, "", nil},
		{"/a", 0, dirInode, "a", nil},
		{"/a/f", dirInode, fileInode, "f", nil},
		{"/a/missing", dirInode, -1, "missing", nil},
		{"/missing/x", 0, 0, "", ErrNoSuchDirectory},
		{"/a/f/x", 0, 0, "", ErrNotADirectory},
		{"relative", 0, 0, "", ErrInvalidName},
		{"/bad*name", 0, 0, "", ErrInvalidName},
		{"/" + strings.Repeat("a/", (MaxPathLength+1)/2), 0, 0, "", ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			parent, child, lastName, err := fs.resolve(tt.path)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected error %v, got %v", tt.err, err)
				}
				return
			}
			require.NoError(t, err)
			if parent != tt.parent || child != tt.child || lastName != tt.lastName {
				t.Errorf("expected (%d, %d, %q), got (%d, %d, %q)", tt.parent, tt.child, tt.lastName, parent, child, lastName)
			}
		})
	}
}
