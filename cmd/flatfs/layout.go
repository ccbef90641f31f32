package main

import (
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
)

type region struct {
	First  uint64 `yaml:"first"`
	Blocks uint64 `yaml:"blocks"`
}

type layout struct {
	BlockSize     uint64 `yaml:"blockSize"`
	DiskBlocks    uint64 `yaml:"diskBlocks"`
	DataBitmap    region `yaml:"dataBitmap"`
	InodeBitmap   region `yaml:"inodeBitmap"`
	InodeTable    region `yaml:"inodeTable"`
	Directory     region `yaml:"directory"`
	Data          region `yaml:"data"`
	InodeSize     uint64 `yaml:"inodeSize"`
	DirEntrySize  uint64 `yaml:"dirEntrySize"`
	MaxFiles      uint64 `yaml:"maxFiles"`
	MaxNameLength uint64 `yaml:"maxNameLength"`
	MaxFileSize   uint64 `yaml:"maxFileSize"`
}

func describeLayout(diskBlocks uint64) layout {
	return layout{
		BlockSize:     disk.BlockSize,
		DiskBlocks:    diskBlocks,
		DataBitmap:    region{common.DataBitmapBlock, 1},
		InodeBitmap:   region{common.InodeBitmapBlock, 1},
		InodeTable:    region{common.FirstInodeBlock, common.NInodeBlocks},
		Directory:     region{common.FirstDirBlock, common.NDirBlocks},
		Data:          region{common.FirstDataBlock, common.NDataBlocks(diskBlocks)},
		InodeSize:     common.INODESZ,
		DirEntrySize:  common.DIRENTSZ,
		MaxFiles:      common.MaxFiles,
		MaxNameLength: common.MaxNameLen,
		MaxFileSize:   common.MaxFileSize,
	}
}
