// Package buf manages sub-block disk objects, packed into disk blocks.
package buf

import (
	"github.com/mit-pdos/go-flatfs/addr"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/util"
)

// A Buf is a disk object (an inode or a directory entry) within one block.
type Buf struct {
	Addr addr.Addr
	Sz   uint64 // number of bytes
	Data []byte
}

func MkBuf(addr addr.Addr, sz uint64, data []byte) *Buf {
	return &Buf{
		Addr: addr,
		Sz:   sz,
		Data: data,
	}
}

// Load the bytes of a disk block into a new buf, as specified by addr. The
// buf copies the bytes, so blk may be reused.
func MkBufLoad(addr addr.Addr, sz uint64, blk disk.Block) *Buf {
	data := util.CloneByteSlice(blk[addr.Off : addr.Off+sz])
	return MkBuf(addr, sz, data)
}

// Install the bytes from buf into blk.
func (buf *Buf) Install(blk disk.Block) {
	if uint64(len(buf.Data)) != buf.Sz || buf.Addr.Off+buf.Sz > uint64(len(blk)) {
		panic("Install: object does not fit block")
	}
	util.DPrintf(15, "%v: install\n", buf.Addr)
	copy(blk[buf.Addr.Off:buf.Addr.Off+buf.Sz], buf.Data)
}

// ReadBuf loads the object at addr from d.
func ReadBuf(d disk.Disk, addr addr.Addr, sz uint64) (*Buf, error) {
	blk, err := d.Read(addr.Blkno)
	if err != nil {
		return nil, err
	}
	return MkBufLoad(addr, sz, blk), nil
}

// WriteDirect installs buf into its block on d with a read-modify-write, or a
// plain write when buf covers the whole block.
func (buf *Buf) WriteDirect(d disk.Disk) error {
	if buf.Sz == disk.BlockSize {
		return d.Write(buf.Addr.Blkno, buf.Data)
	}
	blk, err := d.Read(buf.Addr.Blkno)
	if err != nil {
		return err
	}
	buf.Install(blk)
	return d.Write(buf.Addr.Blkno, blk)
}
