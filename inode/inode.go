// Package inode stores inodes in the inode table and maps a file's logical
// blocks to physical blocks.
//
// An inode has NDIRECT direct block pointers and one indirect block holding
// NINDIRECT more. Blocks are allocated lazily, as writes reach them; an
// unallocated pointer is NULLBNUM and reads as a block of zeros.
package inode

import (
	"encoding/binary"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/util"
)

type Inode struct {
	Inum     common.Inum
	Size     uint64
	Direct   [common.NDIRECT]common.Bnum
	Indirect common.Bnum
}

func MkInode(inum common.Inum) *Inode {
	return &Inode{Inum: inum}
}

// NBlocks is the number of logical blocks spanned by the file's size.
func (ip *Inode) NBlocks() uint64 {
	return util.RoundUp(ip.Size, disk.BlockSize)
}

// Encode lays out ip as
//
//	u32 size | u16 direct[NDIRECT] | u16 indirect
//
// in INODESZ bytes.
func (ip *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(uint32(ip.Size))
	addrs := make([]byte, (common.NDIRECT+1)*common.BNUMSZ)
	for i, bn := range ip.Direct {
		putBnum(addrs[uint64(i)*common.BNUMSZ:], bn)
	}
	putBnum(addrs[common.NDIRECT*common.BNUMSZ:], ip.Indirect)
	enc.PutBytes(addrs)
	return enc.Finish()
}

func Decode(inum common.Inum, data []byte) *Inode {
	ip := MkInode(inum)
	dec := marshal.NewDec(data)
	ip.Size = uint64(dec.GetInt32())
	addrs := dec.GetBytes((common.NDIRECT + 1) * common.BNUMSZ)
	for i := range ip.Direct {
		ip.Direct[i] = getBnum(addrs[uint64(i)*common.BNUMSZ:])
	}
	ip.Indirect = getBnum(addrs[common.NDIRECT*common.BNUMSZ:])
	return ip
}

func putBnum(b []byte, bn common.Bnum) {
	binary.LittleEndian.PutUint16(b, uint16(bn))
}

func getBnum(b []byte) common.Bnum {
	return common.Bnum(binary.LittleEndian.Uint16(b))
}

// An indirect block: NINDIRECT block addresses.
type indirect []common.Bnum

func decodeIndirect(blk disk.Block) indirect {
	ind := make(indirect, common.NINDIRECT)
	for i := range ind {
		ind[i] = getBnum(blk[uint64(i)*common.BNUMSZ:])
	}
	return ind
}

func (ind indirect) encode() disk.Block {
	blk := make(disk.Block, disk.BlockSize)
	for i, bn := range ind {
		putBnum(blk[uint64(i)*common.BNUMSZ:], bn)
	}
	return blk
}

// RecordSize is the number of bytes an encoded inode uses.
const RecordSize uint64 = 4 + (common.NDIRECT+1)*common.BNUMSZ

// IndirectSize is the number of bytes the addresses of an indirect block use.
const IndirectSize uint64 = common.NINDIRECT * common.BNUMSZ
