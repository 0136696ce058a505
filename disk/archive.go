package disk

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"
)

// Image archives. Export writes a byte-exact copy of the disk to a host
// file, compressed according to the destination's extension; Import is the
// reverse. Supported extensions are .xz and .lz4; anything else is written
// raw.

// Export copy the disk contents to the given path, compressing when the
// path ends in a known compression extension.
func (d *Disk) Export(pathName string) error {
	out, err := os.Create(pathName)
	if err != nil {
		return fmt.Errorf("could not create archive %s: %v", pathName, err)
	}
	defer out.Close()

	var w io.Writer = out
	var finish func() error
	switch {
	case strings.HasSuffix(pathName, ".xz"):
		xw, err := xz.NewWriter(out)
		if err != nil {
			return fmt.Errorf("could not create xz writer: %v", err)
		}
		w, finish = xw, xw.Close
	case strings.HasSuffix(pathName, ".lz4"):
		lw := lz4.NewWriter(out)
		w, finish = lw, lw.Close
	}

	buf := make([]byte, d.Backend.SectorSize())
	for s := int64(0); s < d.Backend.Sectors(); s++ {
		if err := d.Backend.ReadSector(s, buf); err != nil {
			return fmt.Errorf("could not read sector %d: %v", s, err)
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("could not write archive %s: %v", pathName, err)
		}
	}
	if finish != nil {
		if err := finish(); err != nil {
			return fmt.Errorf("could not finish archive %s: %v", pathName, err)
		}
	}
	return out.Close()
}

// Import overwrite the disk contents from an archive previously written by
// Export. The uncompressed archive must be exactly the size of the disk.
func (d *Disk) Import(pathName string) error {
	in, err := os.Open(pathName)
	if err != nil {
		return fmt.Errorf("could not open archive %s: %v", pathName, err)
	}
	defer in.Close()

	var r io.Reader = in
	switch {
	case strings.HasSuffix(pathName, ".xz"):
		xr, err := xz.NewReader(in)
		if err != nil {
			return fmt.Errorf("could not create xz reader: %v", err)
		}
		r = xr
	case strings.HasSuffix(pathName, ".lz4"):
		r = lz4.NewReader(in)
	}

	buf := make([]byte, d.Backend.SectorSize())
	for s := int64(0); s < d.Backend.Sectors(); s++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("archive %s truncated at sector %d: %v", pathName, s, err)
		}
		if err := d.Backend.WriteSector(s, buf); err != nil {
			return fmt.Errorf("could not write sector %d: %v", s, err)
		}
	}
	// anything left over means the archive was made from a bigger disk
	if n, _ := io.CopyN(io.Discard, r, 1); n != 0 {
		return fmt.Errorf("archive %s larger than disk size %d", pathName, d.Size)
	}
	return d.Backend.Sync()
}
