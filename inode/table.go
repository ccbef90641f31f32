package inode

import (
	"github.com/mit-pdos/go-flatfs/addr"
	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/buf"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fserr"
	"github.com/mit-pdos/go-flatfs/util"
)

// Table is the on-disk inode table together with the inode and data
// bitmaps that track what it owns.
type Table struct {
	d      disk.Disk
	inodes *alloc.Alloc
	blocks *alloc.Alloc
}

func MkTable(d disk.Disk, inodes *alloc.Alloc, blocks *alloc.Alloc) *Table {
	return &Table{d: d, inodes: inodes, blocks: blocks}
}

// Load reads inode inum. inum usually comes from a directory entry on disk,
// so an out-of-range number is reported as corruption.
func (t *Table) Load(inum common.Inum) (*Inode, error) {
	if uint64(inum) >= common.MaxFiles {
		return nil, fserr.Corrupt("load inode", "inode %d out of range", inum)
	}
	b, err := buf.ReadBuf(t.d, addr.MkInodeAddr(inum), common.INODESZ)
	if err != nil {
		return nil, fserr.IO("load inode", err)
	}
	return Decode(inum, b.Data), nil
}

// Store writes ip back to its slot with a read-modify-write of the one
// inode block that holds it.
func (t *Table) Store(ip *Inode) error {
	b := buf.MkBuf(addr.MkInodeAddr(ip.Inum), common.INODESZ, ip.Encode())
	if err := b.WriteDirect(t.d); err != nil {
		return fserr.IO("store inode", err)
	}
	util.DPrintf(10, "Store: inode %d size %d\n", ip.Inum, ip.Size)
	return nil
}

// HasFree reports whether an inode is available, without allocating it.
func (t *Table) HasFree() (bool, error) {
	_, ok, err := t.inodes.FindFree(t.d)
	if err != nil {
		return false, fserr.IO("find inode", err)
	}
	return ok, nil
}

// Alloc allocates the lowest free inode and stores it empty.
func (t *Table) Alloc() (*Inode, error) {
	n, ok, err := t.inodes.AllocNum(t.d)
	if err != nil {
		return nil, fserr.IO("alloc inode", err)
	}
	if !ok {
		return nil, fserr.New("alloc inode", fserr.OutOfSpace)
	}
	ip := MkInode(common.Inum(n))
	if err := t.Store(ip); err != nil {
		return nil, err
	}
	return ip, nil
}

// ValidBlock reports whether bn is in the data region.
func (t *Table) ValidBlock(bn common.Bnum) bool {
	return bn >= common.FirstDataBlock && bn < common.FirstDataBlock+t.blocks.Max()
}

func (t *Table) checkBlock(op string, ip *Inode, bn common.Bnum) error {
	if !t.ValidBlock(bn) {
		return fserr.Corrupt(op, "inode %d: block %d outside data region", ip.Inum, bn)
	}
	return nil
}

func (t *Table) readIndirect(ip *Inode) (indirect, error) {
	bn := ip.Indirect
	if err := t.checkBlock("read indirect", ip, bn); err != nil {
		return nil, err
	}
	blk, err := t.d.Read(bn)
	if err != nil {
		return nil, fserr.IO("read indirect", err)
	}
	return decodeIndirect(blk), nil
}

func (t *Table) writeIndirect(bn common.Bnum, ind indirect) error {
	if err := t.d.Write(bn, ind.encode()); err != nil {
		return fserr.IO("write indirect", err)
	}
	return nil
}

// Translate maps logical block lbn of ip to a physical block. The result is
// NULLBNUM if lbn has not been written. Translate never allocates.
func (t *Table) Translate(ip *Inode, lbn uint64) (common.Bnum, error) {
	var bn common.Bnum
	if lbn < common.NDIRECT {
		bn = ip.Direct[lbn]
	} else {
		off := lbn - common.NDIRECT
		if off >= common.NINDIRECT {
			return common.NULLBNUM, fserr.New("translate", fserr.ExceedsMaxFileSize)
		}
		if ip.Indirect == common.NULLBNUM {
			return common.NULLBNUM, nil
		}
		ind, err := t.readIndirect(ip)
		if err != nil {
			return common.NULLBNUM, err
		}
		bn = ind[off]
	}
	if bn != common.NULLBNUM {
		if err := t.checkBlock("translate", ip, bn); err != nil {
			return common.NULLBNUM, err
		}
	}
	return bn, nil
}

func (t *Table) allocBlock() (common.Bnum, error) {
	n, ok, err := t.blocks.AllocNum(t.d)
	if err != nil {
		return common.NULLBNUM, fserr.IO("alloc block", err)
	}
	if !ok {
		return common.NULLBNUM, fserr.New("alloc block", fserr.OutOfSpace)
	}
	return addr.DataBlock(n), nil
}

// EnsureBlock returns the physical block for logical block lbn, allocating
// it (and the indirect block) if needed. fresh is true if the block was just
// allocated; its on-disk contents are stale and must be treated as zeros.
// The inode or indirect block that points to a new block is persisted.
func (t *Table) EnsureBlock(ip *Inode, lbn uint64) (bn common.Bnum, fresh bool, err error) {
	if lbn < common.NDIRECT {
		if ip.Direct[lbn] != common.NULLBNUM {
			return ip.Direct[lbn], false, t.checkBlock("ensure block", ip, ip.Direct[lbn])
		}
		bn, err = t.allocBlock()
		if err != nil {
			return common.NULLBNUM, false, err
		}
		ip.Direct[lbn] = bn
		if err := t.Store(ip); err != nil {
			return common.NULLBNUM, false, err
		}
		return bn, true, nil
	}

	off := lbn - common.NDIRECT
	if off >= common.NINDIRECT {
		return common.NULLBNUM, false, fserr.New("ensure block", fserr.ExceedsMaxFileSize)
	}
	var ind indirect
	if ip.Indirect == common.NULLBNUM {
		ibn, err := t.allocBlock()
		if err != nil {
			return common.NULLBNUM, false, err
		}
		ind = make(indirect, common.NINDIRECT)
		if err := t.writeIndirect(ibn, ind); err != nil {
			return common.NULLBNUM, false, err
		}
		ip.Indirect = ibn
		if err := t.Store(ip); err != nil {
			return common.NULLBNUM, false, err
		}
		util.DPrintf(5, "EnsureBlock: inode %d indirect %d\n", ip.Inum, ibn)
	} else {
		ind, err = t.readIndirect(ip)
		if err != nil {
			return common.NULLBNUM, false, err
		}
	}
	if ind[off] != common.NULLBNUM {
		return ind[off], false, t.checkBlock("ensure block", ip, ind[off])
	}
	bn, err = t.allocBlock()
	if err != nil {
		return common.NULLBNUM, false, err
	}
	ind[off] = bn
	if err := t.writeIndirect(ip.Indirect, ind); err != nil {
		return common.NULLBNUM, false, err
	}
	return bn, true, nil
}

// BlocksNeeded counts the blocks EnsureBlock would allocate to cover n bytes
// at byte offset off, including the indirect block. The range must lie
// within MaxFileSize.
func (t *Table) BlocksNeeded(ip *Inode, off uint64, n uint64) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	first := off / disk.BlockSize
	last := (off + n - 1) / disk.BlockSize
	var count uint64
	for lbn := first; lbn <= last && lbn < common.NDIRECT; lbn++ {
		if ip.Direct[lbn] == common.NULLBNUM {
			count++
		}
	}
	if last < common.NDIRECT {
		return count, nil
	}
	start := first
	if start < common.NDIRECT {
		start = common.NDIRECT
	}
	if ip.Indirect == common.NULLBNUM {
		return count + 1 + (last - start + 1), nil
	}
	ind, err := t.readIndirect(ip)
	if err != nil {
		return 0, err
	}
	for lbn := start; lbn <= last; lbn++ {
		if ind[lbn-common.NDIRECT] == common.NULLBNUM {
			count++
		}
	}
	return count, nil
}

// FreeBlocks reports how many data blocks are free.
func (t *Table) FreeBlocks() (uint64, error) {
	n, err := t.blocks.NumFree(t.d)
	if err != nil {
		return 0, fserr.IO("count free blocks", err)
	}
	return n, nil
}

// Blocks lists every physical block ip owns: direct blocks, blocks named by
// the indirect block, and the indirect block itself.
func (t *Table) Blocks(ip *Inode) ([]common.Bnum, error) {
	var bns []common.Bnum
	for _, bn := range ip.Direct {
		if bn != common.NULLBNUM {
			bns = append(bns, bn)
		}
	}
	if ip.Indirect == common.NULLBNUM {
		return bns, nil
	}
	ind, err := t.readIndirect(ip)
	if err != nil {
		return nil, err
	}
	for _, bn := range ind {
		if bn != common.NULLBNUM {
			bns = append(bns, bn)
		}
	}
	return append(bns, ip.Indirect), nil
}

// Span is one past the highest logical block of ip that is mapped, or 0 if
// none is.
func (t *Table) Span(ip *Inode) (uint64, error) {
	if ip.Indirect != common.NULLBNUM {
		ind, err := t.readIndirect(ip)
		if err != nil {
			return 0, err
		}
		for i := common.NINDIRECT; i > 0; i-- {
			if ind[i-1] != common.NULLBNUM {
				return common.NDIRECT + i, nil
			}
		}
	}
	for i := common.NDIRECT; i > 0; i-- {
		if ip.Direct[i-1] != common.NULLBNUM {
			return i, nil
		}
	}
	return 0, nil
}

// FreeAll returns all of ip's blocks to the data bitmap and then frees the
// inode itself. Nothing is freed if any block address is invalid.
func (t *Table) FreeAll(ip *Inode) error {
	bns, err := t.Blocks(ip)
	if err != nil {
		return err
	}
	bits := make([]uint64, 0, len(bns))
	for _, bn := range bns {
		if err := t.checkBlock("free blocks", ip, bn); err != nil {
			return err
		}
		bits = append(bits, addr.DataBit(bn))
	}
	if err := t.blocks.FreeNums(t.d, bits); err != nil {
		return fserr.IO("free blocks", err)
	}
	if err := t.inodes.FreeNum(t.d, uint64(ip.Inum)); err != nil {
		return fserr.IO("free inode", err)
	}
	util.DPrintf(5, "FreeAll: inode %d, %d blocks\n", ip.Inum, len(bns))
	*ip = *MkInode(ip.Inum)
	return nil
}
