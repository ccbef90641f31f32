// Package alloc allocates numbers from a bitmap stored in one disk block.
package alloc

import (
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/util"
)

// Alloc allocates the numbers [0, max) from the bitmap in block blkno. Every
// call reads the bitmap from disk; there is no in-memory copy to go stale.
type Alloc struct {
	blkno common.Bnum
	max   uint64
}

func MkAlloc(blkno common.Bnum, max uint64) *Alloc {
	if max > common.NBITBLOCK {
		panic("MkAlloc: bitmap does not fit in a block")
	}
	return &Alloc{blkno: blkno, max: max}
}

func (a *Alloc) Max() uint64 {
	return a.max
}

func (a *Alloc) load(d disk.Disk) (Bitmap, error) {
	blk, err := d.Read(a.blkno)
	if err != nil {
		return Bitmap{}, err
	}
	return MkBitmap(blk, a.max), nil
}

func (a *Alloc) store(d disk.Disk, bm Bitmap) error {
	return d.Write(a.blkno, bm.bytes)
}

// FindFree returns the lowest free number without allocating it.
func (a *Alloc) FindFree(d disk.Disk) (uint64, bool, error) {
	bm, err := a.load(d)
	if err != nil {
		return 0, false, err
	}
	n, ok := bm.FindFree()
	return n, ok, nil
}

// AllocNum finds the lowest free number and marks it used.
func (a *Alloc) AllocNum(d disk.Disk) (uint64, bool, error) {
	bm, err := a.load(d)
	if err != nil {
		return 0, false, err
	}
	n, ok := bm.FindFree()
	if !ok {
		util.DPrintf(5, "AllocNum: bitmap %d full\n", a.blkno)
		return 0, false, nil
	}
	bm.MarkUsed(n)
	util.DPrintf(10, "AllocNum: bitmap %d num %d\n", a.blkno, n)
	return n, true, a.store(d, bm)
}

func (a *Alloc) MarkUsed(d disk.Disk, n uint64) error {
	bm, err := a.load(d)
	if err != nil {
		return err
	}
	bm.MarkUsed(n)
	return a.store(d, bm)
}

func (a *Alloc) FreeNum(d disk.Disk, n uint64) error {
	bm, err := a.load(d)
	if err != nil {
		return err
	}
	bm.MarkFree(n)
	util.DPrintf(10, "FreeNum: bitmap %d num %d\n", a.blkno, n)
	return a.store(d, bm)
}

func (a *Alloc) IsUsed(d disk.Disk, n uint64) (bool, error) {
	bm, err := a.load(d)
	if err != nil {
		return false, err
	}
	return bm.IsUsed(n), nil
}

func (a *Alloc) NumFree(d disk.Disk) (uint64, error) {
	bm, err := a.load(d)
	if err != nil {
		return 0, err
	}
	return bm.NumFree(), nil
}

// Bitmap returns a snapshot of the on-disk bitmap.
func (a *Alloc) Bitmap(d disk.Disk) (Bitmap, error) {
	return a.load(d)
}

// FreeNums frees several numbers with one read and one write of the bitmap.
func (a *Alloc) FreeNums(d disk.Disk, ns []uint64) error {
	if len(ns) == 0 {
		return nil
	}
	bm, err := a.load(d)
	if err != nil {
		return err
	}
	for _, n := range ns {
		bm.MarkFree(n)
	}
	util.DPrintf(10, "FreeNums: bitmap %d nums %v\n", a.blkno, ns)
	return a.store(d, bm)
}
