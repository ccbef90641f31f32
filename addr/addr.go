package addr

import (
	"fmt"

	"github.com/mit-pdos/go-flatfs/common"
)

// Addr identifies the start of a disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a byte offset). The size of the
// object is determined by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bytes
}

func (a Addr) String() string {
	return fmt.Sprintf("%d+%d", a.Blkno, a.Off)
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkInodeAddr locates inode inum in the inode table.
func MkInodeAddr(inum common.Inum) Addr {
	i := uint64(inum)
	return MkAddr(common.FirstInodeBlock+i/common.INODEBLK,
		(i%common.INODEBLK)*common.INODESZ)
}

// MkDirAddr locates directory slot n in the directory table.
func MkDirAddr(n uint64) Addr {
	return MkAddr(common.FirstDirBlock+n/common.DIRENTBLK,
		(n%common.DIRENTBLK)*common.DIRENTSZ)
}

// DataBlock is the physical block standing for bit n of the data bitmap.
func DataBlock(n uint64) common.Bnum {
	return common.FirstDataBlock + n
}

// DataBit is the data bitmap bit standing for physical block bn.
func DataBit(bn common.Bnum) uint64 {
	return bn - common.FirstDataBlock
}
