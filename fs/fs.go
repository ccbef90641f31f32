// Package fs is the top-level file system API.
//
// A FileSystem is a single flat directory of at most common.MaxFiles files on
// a disk.Disk. Files are opened as *File handles; a file can have at most one
// open handle at a time, enforced with an open flag stored in its directory
// entry.
//
// A FileSystem is not safe for concurrent use. Every operation runs to
// completion against the disk before it returns. A disk error aborts the
// operation with fserr.IOError and leaves whatever was already written in
// place; there is no journal and no rollback. If a program exits with a file
// open, the flag stays set on disk and the file cannot be opened again until
// Unlock clears it.
//
// Every operation returns an error whose fserr.KindOf is its kind, and also
// records that kind for LastError.
package fs

import (
	"fmt"

	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/dir"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fserr"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/util"
)

type FileSystem struct {
	d       disk.Disk
	blocks  *alloc.Alloc
	inodes  *alloc.Alloc
	itable  *inode.Table
	dir     *dir.Table
	lastErr fserr.Kind
}

// Mount uses the file system already on d.
func Mount(d disk.Disk) (*FileSystem, error) {
	ndata := common.NDataBlocks(d.Size())
	if ndata == 0 {
		return nil, fmt.Errorf("mounting: disk of %d blocks has no data region "+
			"(need more than %d)", d.Size(), common.FirstDataBlock)
	}
	fs := &FileSystem{
		d:      d,
		blocks: alloc.MkAlloc(common.DataBitmapBlock, ndata),
		inodes: alloc.MkAlloc(common.InodeBitmapBlock, common.MaxFiles),
	}
	fs.itable = inode.MkTable(d, fs.inodes, fs.blocks)
	fs.dir = dir.MkTable(d, fs.itable)
	util.DPrintf(1, "Mount: %d blocks, %d data blocks\n", d.Size(), ndata)
	return fs, nil
}

// Mkfs initializes an empty file system on d by zeroing the bitmaps, the
// inode table and the directory table, and mounts it.
func Mkfs(d disk.Disk) (*FileSystem, error) {
	if err := CheckStructure(); err != nil {
		return nil, err
	}
	if common.NDataBlocks(d.Size()) == 0 {
		return nil, fmt.Errorf("mkfs: disk of %d blocks is too small", d.Size())
	}
	zero := make(disk.Block, disk.BlockSize)
	for bn := common.Bnum(0); bn < common.FirstDataBlock; bn++ {
		if err := d.Write(bn, zero); err != nil {
			return nil, fmt.Errorf("mkfs: %w", fserr.IO("zero metadata", err))
		}
	}
	if err := d.Barrier(); err != nil {
		return nil, fmt.Errorf("mkfs: %w", fserr.IO("barrier", err))
	}
	return Mount(d)
}

// CheckStructure verifies that every on-disk record fits the layout: whole
// records per block and one block per bitmap and indirect block.
func CheckStructure() error {
	checks := []struct {
		what string
		got  uint64
		want uint64
	}{
		{"inode size", inode.RecordSize, common.INODESZ},
		{"inode block size", common.INODESZ * common.INODEBLK, disk.BlockSize},
		{"indirect block size", inode.IndirectSize, disk.BlockSize},
		{"directory entry size", common.DIRENTSZ * common.DIRENTBLK, disk.BlockSize},
		{"bitmap size", common.NBITBLOCK / 8, disk.BlockSize},
		{"inode table capacity", common.NInodeBlocks * common.INODEBLK, common.MaxFiles},
		{"directory capacity", common.NDirBlocks * common.DIRENTBLK, common.MaxFiles},
	}
	for _, c := range checks {
		if c.got != c.want {
			return fmt.Errorf("structure check: %s is %d, want %d", c.what, c.got, c.want)
		}
	}
	if dir.RecordSize > common.DIRENTSZ {
		return fmt.Errorf("structure check: directory entry needs %d bytes, has %d",
			dir.RecordSize, common.DIRENTSZ)
	}
	return nil
}

func (fs *FileSystem) record(err error) error {
	fs.lastErr = fserr.KindOf(err)
	if err != nil {
		util.DPrintf(3, "error: %v\n", err)
	}
	return err
}

// LastError is the kind of the most recent operation's outcome.
func (fs *FileSystem) LastError() fserr.Kind {
	return fs.lastErr
}

// Create makes a new empty file and returns it open for reading and writing.
func (fs *FileSystem) Create(name string) (*File, error) {
	loc, ip, err := fs.dir.Create(name)
	if err != nil {
		return nil, fs.record(err)
	}
	fs.record(nil)
	return mkFile(fs, ReadWrite, ip, loc), nil
}

// Open opens an existing, closed file.
func (fs *FileSystem) Open(name string, mode Mode) (*File, error) {
	loc, e, ok, err := fs.dir.Lookup(name)
	if err != nil {
		return nil, fs.record(err)
	}
	if !ok {
		return nil, fs.record(fserr.New("open", fserr.FileNotFound))
	}
	if e.Open {
		return nil, fs.record(fserr.New("open", fserr.FileOpen))
	}
	ip, err := fs.itable.Load(e.Inum)
	if err != nil {
		return nil, fs.record(err)
	}
	if err := fs.dir.MarkOpen(loc); err != nil {
		return nil, fs.record(err)
	}
	util.DPrintf(1, "Open: %q inode %d mode %v\n", name, ip.Inum, mode)
	fs.record(nil)
	return mkFile(fs, mode, ip, loc), nil
}

// Delete removes a closed file and frees its storage.
func (fs *FileSystem) Delete(name string) error {
	return fs.record(fs.dir.Delete(name))
}

func (fs *FileSystem) Exists(name string) bool {
	ok, err := fs.dir.Exists(name)
	fs.record(err)
	return ok
}

// Unlock clears a stale open flag, such as one left by a crash while the
// file was open. Any handle still open on name must not be used afterwards.
func (fs *FileSystem) Unlock(name string) error {
	loc, e, ok, err := fs.dir.Lookup(name)
	if err != nil {
		return fs.record(err)
	}
	if !ok {
		return fs.record(fserr.New("unlock", fserr.FileNotFound))
	}
	if e.Open {
		util.DPrintf(1, "Unlock: %q\n", name)
		if err := fs.dir.MarkClosed(loc); err != nil {
			return fs.record(err)
		}
	}
	return fs.record(nil)
}

// FileInfo describes one file in the directory.
type FileInfo struct {
	Name string      `yaml:"name"`
	Inum common.Inum `yaml:"inode"`
	Size uint64      `yaml:"size"`
	Open bool        `yaml:"open"`
}

// List returns every file in directory order.
func (fs *FileSystem) List() ([]FileInfo, error) {
	ls, err := fs.dir.List()
	if err != nil {
		return nil, fs.record(err)
	}
	infos := make([]FileInfo, 0, len(ls))
	for _, l := range ls {
		ip, err := fs.itable.Load(l.Entry.Inum)
		if err != nil {
			return nil, fs.record(err)
		}
		infos = append(infos, FileInfo{
			Name: l.Entry.Name,
			Inum: l.Entry.Inum,
			Size: ip.Size,
			Open: l.Entry.Open,
		})
	}
	fs.record(nil)
	return infos, nil
}

type Stat struct {
	Blocks      uint64 `yaml:"blocks"`
	DataBlocks  uint64 `yaml:"dataBlocks"`
	FreeBlocks  uint64 `yaml:"freeBlocks"`
	FreeInodes  uint64 `yaml:"freeInodes"`
	MaxFiles    uint64 `yaml:"maxFiles"`
	MaxFileSize uint64 `yaml:"maxFileSize"`
}

func (fs *FileSystem) Stat() (Stat, error) {
	st := Stat{
		Blocks:      fs.d.Size(),
		DataBlocks:  fs.blocks.Max(),
		MaxFiles:    common.MaxFiles,
		MaxFileSize: common.MaxFileSize,
	}
	var err error
	st.FreeBlocks, err = fs.blocks.NumFree(fs.d)
	if err != nil {
		return st, fs.record(fserr.IO("stat", err))
	}
	st.FreeInodes, err = fs.inodes.NumFree(fs.d)
	if err != nil {
		return st, fs.record(fserr.IO("stat", err))
	}
	return st, fs.record(nil)
}
