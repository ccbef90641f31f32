// Package common holds the static disk layout shared by every layer.
//
// The layout is fixed: a data bitmap, an inode bitmap, the inode table, the
// directory table, and then data blocks to the end of the disk.
//
//	[ dbitmap | ibitmap | inodes (4) | directory (64) | data ... ]
//	  0         1         2            6                70
package common

import (
	"github.com/tchajed/goose/machine/disk"
)

type Inum uint64
type Bnum = uint64

const (
	MaxFiles uint64 = 512

	INODESZ        uint64 = 32 // on-disk size
	INODEBLK       uint64 = disk.BlockSize / INODESZ
	DIRENTSZ       uint64 = 512 // on-disk size
	DIRENTBLK      uint64 = disk.BlockSize / DIRENTSZ
	NBITBLOCK      uint64 = disk.BlockSize * 8
	BNUMSZ         uint64 = 2 // on-disk size of a block address
	DefaultNBlocks uint64 = 4096
)

const (
	DataBitmapBlock  Bnum   = 0
	InodeBitmapBlock Bnum   = 1
	FirstInodeBlock  Bnum   = 2
	NInodeBlocks     uint64 = MaxFiles / INODEBLK
	FirstDirBlock    Bnum   = FirstInodeBlock + NInodeBlocks
	NDirBlocks       uint64 = MaxFiles / DIRENTBLK
	FirstDataBlock   Bnum   = FirstDirBlock + NDirBlocks
)

const (
	NDIRECT   uint64 = 13
	NINDIRECT uint64 = disk.BlockSize / BNUMSZ
	MaxBlocks uint64 = NDIRECT + NINDIRECT

	// MaxFileSize is the capacity of one inode in bytes.
	MaxFileSize uint64 = MaxBlocks * disk.BlockSize

	// MaxNameLen excludes the NUL terminator.
	MaxNameLen uint64 = DIRENTSZ - 4 - 1 - 1
)

// Block addresses are 16 bits on disk.
const maxAddressable uint64 = 1 << 16

const NULLBNUM Bnum = 0 // block 0 is the data bitmap, never a data block

// NDataBlocks is the number of usable data blocks on a disk of size blocks.
func NDataBlocks(size uint64) uint64 {
	if size > maxAddressable {
		size = maxAddressable
	}
	if size <= FirstDataBlock {
		return 0
	}
	n := size - FirstDataBlock
	if n > NBITBLOCK {
		n = NBITBLOCK
	}
	return n
}
