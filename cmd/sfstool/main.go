// sfstool manipulates simplefs disk images: create and inspect images,
// list and edit their contents, and archive them to compressed files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	simplefs "github.com/diskfs/go-simplefs"
	"github.com/diskfs/go-simplefs/disk"
	"github.com/diskfs/go-simplefs/filesystem/sfs"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: sfstool [flags] <command> [args]

commands:
  mkfs <image>                create and format a new image
  info <image>                print filesystem information
  ls <image> <path>           list a directory
  mkdir <image> <path>        create a directory
  rmdir <image> <path>        remove an empty directory
  touch <image> <path>        create an empty file
  write <image> <path> <src>  copy a host file into the image ("-" for stdin)
  cat <image> <path>          copy a file from the image to stdout
  rm <image> <path>           remove a file
  label <image> [<label>]     print or set the volume label
  export <image> <archive>    archive the image (.xz and .lz4 compress)
  import <image> <archive>    restore the image from an archive

flags:
`)
	flag.PrintDefaults()
}

func main() {
	var (
		debug        bool
		sectorSize   = flag.Int("sector-size", sfs.DefaultSectorSize, "bytes per sector (mkfs)")
		totalSectors = flag.Int64("sectors", sfs.DefaultTotalSectors, "total sectors on the image (mkfs)")
		maxFiles     = flag.Int("max-files", sfs.DefaultMaxFiles, "maximum number of inodes (mkfs)")
		label        = flag.String("label", "", "volume label (mkfs)")
	)
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, image := strings.ToLower(args[0]), args[1]
	args = args[2:]

	if cmd == "mkfs" {
		mkfs(image, *sectorSize, *totalSectors, *maxFiles, *label)
		return
	}

	d, err := simplefs.Open(image)
	if err != nil {
		log.Fatalf("could not open %s: %v", image, err)
	}
	defer d.Close()

	switch cmd {
	case "import":
		requireArgs(args, 1, "import <image> <archive>")
		if err := d.Import(args[0]); err != nil {
			log.Fatalf("import failed: %v", err)
		}
		log.Debugf("restored %s from %s", image, args[0])
		return
	case "export":
		requireArgs(args, 1, "export <image> <archive>")
		if err := d.Export(args[0]); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		log.Debugf("archived %s to %s", image, args[0])
		return
	}

	fs, err := d.GetFilesystem()
	if err != nil {
		log.Fatalf("could not read filesystem on %s: %v", image, err)
	}

	switch cmd {
	case "info":
		info(d, fs)
	case "ls":
		requireArgs(args, 1, "ls <image> <path>")
		ls(fs, args[0])
	case "mkdir":
		requireArgs(args, 1, "mkdir <image> <path>")
		checkErr(fs.Mkdir(args[0]))
	case "rmdir":
		requireArgs(args, 1, "rmdir <image> <path>")
		checkErr(fs.RemoveDir(args[0]))
	case "touch":
		requireArgs(args, 1, "touch <image> <path>")
		checkErr(fs.CreateFile(args[0]))
	case "write":
		requireArgs(args, 2, "write <image> <path> <src>")
		write(fs, args[0], args[1])
	case "cat":
		requireArgs(args, 1, "cat <image> <path>")
		cat(fs, args[0])
	case "rm":
		requireArgs(args, 1, "rm <image> <path>")
		checkErr(fs.RemoveFile(args[0]))
	case "label":
		if len(args) == 0 {
			fmt.Println(fs.Label())
		} else {
			checkErr(fs.SetLabel(args[0]))
		}
	default:
		usage()
		os.Exit(2)
	}
	checkErr(fs.Sync())
}

func requireArgs(args []string, n int, usageLine string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage: sfstool", usageLine)
		os.Exit(2)
	}
}

func checkErr(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func mkfs(image string, sectorSize int, totalSectors int64, maxFiles int, label string) {
	d, err := simplefs.Create(image, sectorSize, totalSectors)
	if err != nil {
		log.Fatalf("could not create %s: %v", image, err)
	}
	defer d.Close()
	fs, err := d.CreateFilesystem(&sfs.Params{
		SectorSize:   sectorSize,
		TotalSectors: totalSectors,
		MaxFiles:     maxFiles,
		VolumeLabel:  label,
	})
	if err != nil {
		log.Fatalf("could not format %s: %v", image, err)
	}
	log.Infof("formatted %s, uuid %s", image, fs.UUID())
}

func info(d *disk.Disk, fs *sfs.FileSystem) {
	freeInodes, err := fs.FreeInodes()
	checkErr(err)
	freeSectors, err := fs.FreeSectors()
	checkErr(err)
	fmt.Printf("path:          %s\n", d.Path)
	fmt.Printf("size:          %d bytes\n", d.Size)
	fmt.Printf("label:         %s\n", fs.Label())
	fmt.Printf("uuid:          %s\n", fs.UUID())
	fmt.Printf("free inodes:   %d\n", freeInodes)
	fmt.Printf("free sectors:  %d\n", freeSectors)
}

func ls(fs *sfs.FileSystem, p string) {
	infos, err := fs.ReadDir(p)
	checkErr(err)
	for _, fi := range infos {
		kind := "-"
		if fi.IsDir() {
			kind = "d"
		}
		fmt.Printf("%s %8d %s\n", kind, fi.Size(), fi.Name())
	}
}

func write(fs *sfs.FileSystem, p, src string) {
	var in io.Reader = os.Stdin
	if src != "-" {
		f, err := os.Open(src)
		checkErr(err)
		defer f.Close()
		in = f
	}
	b, err := io.ReadAll(in)
	checkErr(err)
	f, err := fs.OpenFile(p, os.O_CREATE|os.O_RDWR)
	checkErr(err)
	_, err = f.Write(b)
	checkErr(err)
	checkErr(f.Close())
}

func cat(fs *sfs.FileSystem, p string) {
	f, err := fs.OpenFile(p, os.O_RDONLY)
	checkErr(err)
	defer f.Close()
	if _, err := io.Copy(os.Stdout, f); err != nil {
		log.Fatal(err)
	}
}
