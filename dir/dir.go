// Package dir is the single, flat directory: a table of MaxFiles entries
// mapping names to inodes, each with an open flag.
//
// Lookups are linear scans over the directory blocks, in ascending block and
// slot order.
package dir

import (
	"fmt"

	"github.com/mit-pdos/go-flatfs/addr"
	"github.com/mit-pdos/go-flatfs/buf"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fserr"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/util"
)

// Loc is where an entry lives on disk: its directory block and the slot
// within that block.
type Loc struct {
	Blkno common.Bnum
	Slot  uint64
}

func (l Loc) Addr() addr.Addr {
	return addr.MkAddr(l.Blkno, l.Slot*common.DIRENTSZ)
}

func (l Loc) String() string {
	return fmt.Sprintf("dir %d/%d", l.Blkno, l.Slot)
}

type Table struct {
	d      disk.Disk
	inodes *inode.Table
}

func MkTable(d disk.Disk, inodes *inode.Table) *Table {
	return &Table{d: d, inodes: inodes}
}

// scan calls f on each slot in order until f returns true.
func (t *Table) scan(f func(loc Loc, e *Entry) bool) error {
	for i := uint64(0); i < common.NDirBlocks; i++ {
		blkno := common.FirstDirBlock + i
		blk, err := t.d.Read(blkno)
		if err != nil {
			return fserr.IO("read directory", err)
		}
		for slot := uint64(0); slot < common.DIRENTBLK; slot++ {
			off := slot * common.DIRENTSZ
			e := Decode(blk[off : off+common.DIRENTSZ])
			if f(Loc{Blkno: blkno, Slot: slot}, e) {
				return nil
			}
		}
	}
	return nil
}

// Lookup finds the entry named name.
func (t *Table) Lookup(name string) (Loc, *Entry, bool, error) {
	var loc Loc
	var found *Entry
	if name == "" {
		return loc, nil, false, nil
	}
	err := t.scan(func(l Loc, e *Entry) bool {
		if e.Name == name {
			loc, found = l, e
			return true
		}
		return false
	})
	if err != nil {
		return loc, nil, false, err
	}
	return loc, found, found != nil, nil
}

func (t *Table) Exists(name string) (bool, error) {
	_, _, ok, err := t.Lookup(name)
	return ok, err
}

// FindFree returns the first free slot.
func (t *Table) FindFree() (Loc, bool, error) {
	var loc Loc
	var ok bool
	err := t.scan(func(l Loc, e *Entry) bool {
		if e.Free() {
			loc, ok = l, true
			return true
		}
		return false
	})
	return loc, ok, err
}

// Get reads the entry at loc.
func (t *Table) Get(loc Loc) (*Entry, error) {
	b, err := buf.ReadBuf(t.d, loc.Addr(), common.DIRENTSZ)
	if err != nil {
		return nil, fserr.IO("read entry", err)
	}
	return Decode(b.Data), nil
}

// Put writes e at loc with a read-modify-write of its block.
func (t *Table) Put(loc Loc, e *Entry) error {
	b := buf.MkBuf(loc.Addr(), common.DIRENTSZ, e.Encode())
	if err := b.WriteDirect(t.d); err != nil {
		return fserr.IO("write entry", err)
	}
	util.DPrintf(10, "Put: %v %q open %v inode %d\n", loc, e.Name, e.Open, e.Inum)
	return nil
}

func (t *Table) setOpen(loc Loc, open bool) error {
	e, err := t.Get(loc)
	if err != nil {
		return err
	}
	e.Open = open
	return t.Put(loc, e)
}

func (t *Table) MarkOpen(loc Loc) error {
	return t.setOpen(loc, true)
}

func (t *Table) MarkClosed(loc Loc) error {
	return t.setOpen(loc, false)
}

// Create makes an entry for name backed by a fresh empty inode. The entry
// starts out open. Both a free slot and a free inode must exist before
// anything is written.
func (t *Table) Create(name string) (Loc, *inode.Inode, error) {
	if !ValidName(name) {
		return Loc{}, nil, fserr.New("create", fserr.IllegalFilename)
	}
	exists, err := t.Exists(name)
	if err != nil {
		return Loc{}, nil, err
	}
	if exists {
		return Loc{}, nil, fserr.New("create", fserr.FileAlreadyExists)
	}
	loc, ok, err := t.FindFree()
	if err != nil {
		return Loc{}, nil, err
	}
	if !ok {
		return Loc{}, nil, fserr.New("create", fserr.OutOfSpace)
	}
	ok, err = t.inodes.HasFree()
	if err != nil {
		return Loc{}, nil, err
	}
	if !ok {
		return Loc{}, nil, fserr.New("create", fserr.OutOfSpace)
	}

	ip, err := t.inodes.Alloc()
	if err != nil {
		return Loc{}, nil, err
	}
	e := &Entry{Open: true, Inum: ip.Inum, Name: name}
	if err := t.Put(loc, e); err != nil {
		return Loc{}, nil, err
	}
	util.DPrintf(1, "Create: %q inode %d at %v\n", name, ip.Inum, loc)
	return loc, ip, nil
}

// Delete removes name and frees its inode and blocks. An open file is never
// deleted.
func (t *Table) Delete(name string) error {
	loc, e, ok, err := t.Lookup(name)
	if err != nil {
		return err
	}
	if !ok {
		return fserr.New("delete", fserr.FileNotFound)
	}
	if e.Open {
		return fserr.New("delete", fserr.FileOpen)
	}
	ip, err := t.inodes.Load(e.Inum)
	if err != nil {
		return err
	}
	if err := t.inodes.FreeAll(ip); err != nil {
		return err
	}
	if err := t.Put(loc, &Entry{}); err != nil {
		return err
	}
	util.DPrintf(1, "Delete: %q inode %d\n", name, e.Inum)
	return nil
}

// Listing is one used directory slot.
type Listing struct {
	Loc   Loc
	Entry Entry
}

// List returns every used entry in slot order.
func (t *Table) List() ([]Listing, error) {
	var ls []Listing
	err := t.scan(func(l Loc, e *Entry) bool {
		if !e.Free() {
			ls = append(ls, Listing{Loc: l, Entry: *e})
		}
		return false
	})
	return ls, err
}
