package fs

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/go-flatfs/addr"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/fserr"
)

// FsckError lists the inconsistencies found by Fsck.
type FsckError struct {
	Problems []string
}

func (e *FsckError) Error() string {
	return fmt.Sprintf("fsck: %d problems:\n  %s", len(e.Problems),
		strings.Join(e.Problems, "\n  "))
}

// Fsck checks that the directory, the inodes and both bitmaps agree:
// every entry names a distinct, allocated inode; every block an inode points
// to is an allocated data block owned by no other inode; and nothing is
// marked allocated that no file owns; no file maps a block past its size.
// It does not modify the disk. Problems are returned as a *FsckError and
// recorded as IOError.
func (fs *FileSystem) Fsck() error {
	ls, err := fs.dir.List()
	if err != nil {
		return fs.record(err)
	}
	ibm, err := fs.inodes.Bitmap(fs.d)
	if err != nil {
		return fs.record(fserr.IO("fsck", err))
	}
	dbm, err := fs.blocks.Bitmap(fs.d)
	if err != nil {
		return fs.record(fserr.IO("fsck", err))
	}

	var problems []string
	report := func(format string, a ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, a...))
	}

	inodeOwner := make(map[common.Inum]string)
	blockOwner := make(map[common.Bnum]string)
	for _, l := range ls {
		e := l.Entry
		if uint64(e.Inum) >= common.MaxFiles {
			report("%q: inode %d out of range", e.Name, e.Inum)
			continue
		}
		if !ibm.IsUsed(uint64(e.Inum)) {
			report("%q: inode %d not marked used", e.Name, e.Inum)
		}
		if other, ok := inodeOwner[e.Inum]; ok {
			report("%q: inode %d also used by %q", e.Name, e.Inum, other)
			continue
		}
		inodeOwner[e.Inum] = e.Name

		ip, err := fs.itable.Load(e.Inum)
		if err != nil {
			return fs.record(err)
		}
		if ip.Size > common.MaxFileSize {
			report("%q: size %d exceeds maximum", e.Name, ip.Size)
		}
		if ip.Indirect != common.NULLBNUM && !fs.itable.ValidBlock(ip.Indirect) {
			report("%q: indirect block %d outside data region", e.Name, ip.Indirect)
			continue
		}
		bns, err := fs.itable.Blocks(ip)
		if err != nil {
			return fs.record(err)
		}
		for _, bn := range bns {
			if !fs.itable.ValidBlock(bn) {
				report("%q: block %d outside data region", e.Name, bn)
				continue
			}
			if !dbm.IsUsed(addr.DataBit(bn)) {
				report("%q: block %d not marked used", e.Name, bn)
			}
			if other, ok := blockOwner[bn]; ok {
				report("%q: block %d also used by %q", e.Name, bn, other)
			}
			blockOwner[bn] = e.Name
		}
		span, err := fs.itable.Span(ip)
		if err != nil {
			return fs.record(err)
		}
		if span > ip.NBlocks() {
			report("%q: block %d mapped past end of file (size %d)", e.Name, span-1, ip.Size)
		}
	}

	for n := uint64(0); n < common.MaxFiles; n++ {
		if _, ok := inodeOwner[common.Inum(n)]; ibm.IsUsed(n) && !ok {
			report("inode %d marked used but unreferenced", n)
		}
	}
	for n := uint64(0); n < fs.blocks.Max(); n++ {
		if _, ok := blockOwner[addr.DataBlock(n)]; dbm.IsUsed(n) && !ok {
			report("block %d marked used but unreferenced", addr.DataBlock(n))
		}
	}

	if len(problems) > 0 {
		return fs.record(&FsckError{Problems: problems})
	}
	return fs.record(nil)
}
