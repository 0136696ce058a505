package sfs_test

/*
 These test the exported API end to end over an in-memory device,
 including the persistence path through a backing file.
*/

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/diskfs/go-simplefs/backend/mem"
	"github.com/diskfs/go-simplefs/filesystem/sfs"
	"github.com/stretchr/testify/require"
)

func newFS(t *testing.T) *sfs.FileSystem {
	t.Helper()
	dev, err := mem.New(sfs.DefaultSectorSize, sfs.DefaultTotalSectors)
	require.NoError(t, err, "creating device failed")
	fs, err := sfs.Create(dev, nil)
	require.NoError(t, err, "formatting failed")
	return fs
}

func TestFreshFilesystem(t *testing.T) {
	fs := newFS(t)
	size, err := fs.DirSize("/")
	require.NoError(t, err)
	require.Equal(t, int64(0), size)

	infos, err := fs.ReadDir("/")
	require.NoError(t, err)
	require.Empty(t, infos)

	require.Equal(t, sfs.DefaultVolumeLabel, fs.Label())
}

func TestCreateAndList(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/a"))
	require.NoError(t, fs.CreateFile("/b"))

	infos, err := fs.ReadDir("/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "a", infos[0].Name())
	require.Equal(t, "b", infos[1].Name())

	aInode, bInode := infos[0].Sys().(int32), infos[1].Sys().(int32)
	if aInode == 0 || bInode == 0 || aInode == bInode {
		t.Errorf("expected distinct nonzero inodes, got %d and %d", aInode, bInode)
	}
}

func TestCreateExisting(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/a"))
	err := fs.CreateFile("/a")
	if !errors.Is(err, sfs.ErrCreate) {
		t.Errorf("expected ErrCreate, got %v", err)
	}
	// a directory cannot take the name either
	err = fs.Mkdir("/a")
	if !errors.Is(err, sfs.ErrCreate) {
		t.Errorf("expected ErrCreate, got %v", err)
	}
}

func TestCreateMissingParent(t *testing.T) {
	fs := newFS(t)
	err := fs.CreateFile("/nodir/a")
	if !errors.Is(err, sfs.ErrCreate) {
		t.Errorf("expected ErrCreate, got %v", err)
	}
	err = fs.Mkdir("/nodir/sub")
	if !errors.Is(err, sfs.ErrCreate) {
		t.Errorf("expected ErrCreate, got %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/x"))
	f, err := fs.OpenFile("/x", os.O_RDWR)
	require.NoError(t, err)

	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)

	size, err := f.(*sfs.File).Size()
	require.NoError(t, err)
	require.Equal(t, int64(5), size)

	pos, err := f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	require.Equal(t, int64(0), pos)

	out := make([]byte, 5)
	n, err = f.Read(out)
	if err != nil && err != io.EOF {
		t.Fatalf("unexpected read error: %v", err)
	}
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), out)

	require.NoError(t, f.Close())
}

func TestSeekBounds(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/x"))
	f, err := fs.OpenFile("/x", os.O_RDWR)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)

	// anywhere in [0, size] is legal, one past is not
	for _, offset := range []int64{0, 3, 5} {
		pos, err := f.Seek(offset, io.SeekStart)
		require.NoError(t, err)
		require.Equal(t, offset, pos)
	}
	_, err = f.Seek(6, io.SeekStart)
	if !errors.Is(err, sfs.ErrSeekOutOfBounds) {
		t.Errorf("expected ErrSeekOutOfBounds, got %v", err)
	}
	_, err = f.Seek(-1, io.SeekStart)
	if !errors.Is(err, sfs.ErrSeekOutOfBounds) {
		t.Errorf("expected ErrSeekOutOfBounds, got %v", err)
	}
	_, err = f.Seek(-2, io.SeekCurrent)
	require.NoError(t, err)
	pos, err := f.Seek(-5, io.SeekEnd)
	require.NoError(t, err)
	require.Equal(t, int64(0), pos)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "test.img")

	dev, err := mem.New(sfs.DefaultSectorSize, sfs.DefaultTotalSectors)
	require.NoError(t, err)
	fs, err := sfs.Create(dev, nil)
	require.NoError(t, err)

	require.NoError(t, fs.Mkdir("/docs"))
	f, err := fs.OpenFile("/docs/hello", os.O_CREATE|os.O_RDWR)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, dev.Save(img))

	// reboot from the backing file
	dev2, err := mem.Load(img, sfs.DefaultSectorSize)
	require.NoError(t, err)
	fs2, err := sfs.Read(dev2)
	require.NoError(t, err)
	require.Equal(t, fs.UUID(), fs2.UUID())

	infos, err := fs2.ReadDir("/docs")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "hello", infos[0].Name())
	require.Equal(t, int64(5), infos[0].Size())

	f2, err := fs2.OpenFile("/docs/hello", os.O_RDONLY)
	require.NoError(t, err)
	out := make([]byte, 5)
	n, err := f2.Read(out)
	if err != nil && err != io.EOF {
		t.Fatalf("unexpected read error: %v", err)
	}
	require.Equal(t, 5, n)
	require.Equal(t, []byte("hello"), out)
}

func TestUnlinkBusy(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/x"))
	f, err := fs.OpenFile("/x", os.O_RDWR)
	require.NoError(t, err)

	err = fs.RemoveFile("/x")
	if !errors.Is(err, sfs.ErrFileInUse) {
		t.Fatalf("expected ErrFileInUse, got %v", err)
	}
	require.NoError(t, f.Close())
	require.NoError(t, fs.RemoveFile("/x"))

	_, err = fs.OpenFile("/x", os.O_RDONLY)
	if !errors.Is(err, sfs.ErrNoSuchFile) {
		t.Errorf("expected ErrNoSuchFile, got %v", err)
	}
}

func TestUnlinkBusyViaSecondDescriptor(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/x"))
	f1, err := fs.OpenFile("/x", os.O_RDWR)
	require.NoError(t, err)
	f2, err := fs.OpenFile("/x", os.O_RDONLY)
	require.NoError(t, err)

	require.NoError(t, f1.Close())
	// the second descriptor still pins the inode
	err = fs.RemoveFile("/x")
	if !errors.Is(err, sfs.ErrFileInUse) {
		t.Fatalf("expected ErrFileInUse, got %v", err)
	}
	require.NoError(t, f2.Close())
	require.NoError(t, fs.RemoveFile("/x"))
}

func TestRemoveDirNotEmpty(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.Mkdir("/d"))
	require.NoError(t, fs.CreateFile("/d/f"))

	err := fs.RemoveDir("/d")
	if !errors.Is(err, sfs.ErrDirNotEmpty) {
		t.Fatalf("expected ErrDirNotEmpty, got %v", err)
	}
	require.NoError(t, fs.RemoveFile("/d/f"))
	require.NoError(t, fs.RemoveDir("/d"))

	_, err = fs.DirSize("/d")
	if !errors.Is(err, sfs.ErrNoSuchDirectory) {
		t.Errorf("expected ErrNoSuchDirectory, got %v", err)
	}
}

func TestRemoveRoot(t *testing.T) {
	fs := newFS(t)
	for _, err := range []error{fs.RemoveDir("/"), fs.RemoveFile("/"), fs.Remove("/")} {
		if !errors.Is(err, sfs.ErrRootDirectory) {
			t.Errorf("expected ErrRootDirectory, got %v", err)
		}
	}
}

func TestRemoveWrongType(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.Mkdir("/d"))
	require.NoError(t, fs.CreateFile("/f"))

	err := fs.RemoveFile("/d")
	if !errors.Is(err, sfs.ErrNotAFile) {
		t.Errorf("expected ErrNotAFile, got %v", err)
	}
	err = fs.RemoveDir("/f")
	if !errors.Is(err, sfs.ErrNotADirectory) {
		t.Errorf("expected ErrNotADirectory, got %v", err)
	}
}

func TestNoLeakAcrossCreateAndUnlink(t *testing.T) {
	fs := newFS(t)
	freeInodes, err := fs.FreeInodes()
	require.NoError(t, err)
	freeSectors, err := fs.FreeSectors()
	require.NoError(t, err)

	require.NoError(t, fs.Mkdir("/d"))
	f, err := fs.OpenFile("/d/f", os.O_CREATE|os.O_RDWR)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 3*sfs.DefaultSectorSize))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, fs.RemoveFile("/d/f"))
	require.NoError(t, fs.RemoveDir("/d"))

	afterInodes, err := fs.FreeInodes()
	require.NoError(t, err)
	afterSectors, err := fs.FreeSectors()
	require.NoError(t, err)
	require.Equal(t, freeInodes, afterInodes)
	require.Equal(t, freeSectors, afterSectors)
}

func TestIllegalNames(t *testing.T) {
	fs := newFS(t)
	for _, p := range []string{"/bad name", "/bad*", "/0123456789abcdef", "/caf\xc3\xa9"} {
		if err := fs.CreateFile(p); !errors.Is(err, sfs.ErrCreate) {
			t.Errorf("CreateFile(%q): expected ErrCreate, got %v", p, err)
		}
		if err := fs.Mkdir(p); !errors.Is(err, sfs.ErrCreate) {
			t.Errorf("Mkdir(%q): expected ErrCreate, got %v", p, err)
		}
		if _, err := fs.OpenFile(p, os.O_RDONLY); !errors.Is(err, sfs.ErrInvalidName) {
			t.Errorf("OpenFile(%q): expected ErrInvalidName, got %v", p, err)
		}
		if err := fs.RemoveFile(p); !errors.Is(err, sfs.ErrInvalidName) {
			t.Errorf("RemoveFile(%q): expected ErrInvalidName, got %v", p, err)
		}
	}
}

func TestDirSizeAndDirRead(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/a"))
	require.NoError(t, fs.CreateFile("/b"))

	size, err := fs.DirSize("/")
	require.NoError(t, err)
	require.Equal(t, int64(2*sfs.DirentSize), size)

	_, err = fs.DirRead("/", make([]byte, sfs.DirentSize))
	if !errors.Is(err, sfs.ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}

	buf := make([]byte, size)
	n, err := fs.DirRead("/", buf)
	require.NoError(t, err)
	require.Equal(t, int(size), n)
	// entries are packed (name, inode) records in insertion order
	require.Equal(t, []byte("a"), bytes.TrimRight(buf[:16], "\x00"))
	require.Equal(t, []byte("b"), bytes.TrimRight(buf[sfs.DirentSize:sfs.DirentSize+16], "\x00"))
}

func TestOpenFileTableFull(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/x"))
	files := make([]io.Closer, 0, sfs.MaxOpenFiles)
	for i := 0; i < sfs.MaxOpenFiles; i++ {
		f, err := fs.OpenFile("/x", os.O_RDONLY)
		require.NoError(t, err)
		files = append(files, f)
	}
	_, err := fs.OpenFile("/x", os.O_RDONLY)
	if !errors.Is(err, sfs.ErrTooManyOpenFiles) {
		t.Fatalf("expected ErrTooManyOpenFiles, got %v", err)
	}
	// closing any descriptor frees a slot again
	require.NoError(t, files[100].Close())
	f, err := fs.OpenFile("/x", os.O_RDONLY)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestUseAfterClose(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.CreateFile("/x"))
	f, err := fs.OpenFile("/x", os.O_RDONLY)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	if err := f.Close(); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected os.ErrClosed on double close, got %v", err)
	}
	if _, err := f.Read(make([]byte, 1)); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected os.ErrClosed on read after close, got %v", err)
	}
}

func TestOpenDirectoryFails(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.Mkdir("/d"))
	_, err := fs.OpenFile("/d", os.O_RDWR)
	if !errors.Is(err, sfs.ErrNotAFile) {
		t.Errorf("expected ErrNotAFile, got %v", err)
	}
	_, err = fs.OpenFile("/", os.O_RDONLY)
	if !errors.Is(err, sfs.ErrNotAFile) {
		t.Errorf("expected ErrNotAFile, got %v", err)
	}
}

func TestAppendFlag(t *testing.T) {
	fs := newFS(t)
	f, err := fs.OpenFile("/log", os.O_CREATE|os.O_RDWR)
	require.NoError(t, err)
	_, err = f.Write([]byte("one"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = fs.OpenFile("/log", os.O_RDWR|os.O_APPEND)
	require.NoError(t, err)
	_, err = f.Write([]byte("two"))
	require.NoError(t, err)
	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	out := make([]byte, 6)
	n, err := f.Read(out)
	if err != nil && err != io.EOF {
		t.Fatalf("unexpected read error: %v", err)
	}
	require.Equal(t, 6, n)
	require.Equal(t, []byte("onetwo"), out)
}

func TestSetLabel(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.SetLabel("archive01"))
	require.Equal(t, "archive01", fs.Label())
	if err := fs.SetLabel("a-label-that-is-way-too-long"); err == nil {
		t.Errorf("expected error for oversized label")
	}
}

func TestStat(t *testing.T) {
	fs := newFS(t)
	require.NoError(t, fs.Mkdir("/d"))
	require.NoError(t, fs.CreateFile("/d/f"))

	fi, err := fs.Stat("/d")
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	require.Equal(t, "d", fi.Name())

	fi, err = fs.Stat("/d/f")
	require.NoError(t, err)
	require.False(t, fi.IsDir())
	require.Equal(t, int64(0), fi.Size())

	fi, err = fs.Stat("/")
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	_, err = fs.Stat("/missing")
	if !errors.Is(err, sfs.ErrNoSuchFile) {
		t.Errorf("expected ErrNoSuchFile, got %v", err)
	}
}
