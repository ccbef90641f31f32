package fs

import (
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/dir"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fserr"
	"github.com/mit-pdos/go-flatfs/inode"
	"github.com/mit-pdos/go-flatfs/util"
)

type Mode uint64

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadOnly {
		return "read-only"
	}
	return "read-write"
}

// File is an open file. It is valid from Create or Open until Close.
type File struct {
	fs     *FileSystem
	mode   Mode
	ip     *inode.Inode
	loc    dir.Loc
	cursor uint64
	open   bool
}

func mkFile(fs *FileSystem, mode Mode, ip *inode.Inode, loc dir.Loc) *File {
	return &File{
		fs:     fs,
		mode:   mode,
		ip:     ip,
		loc:    loc,
		cursor: 0,
		open:   true,
	}
}

func (f *File) checkOpen(op string) error {
	if f == nil || !f.open {
		return fserr.New(op, fserr.FileNotOpen)
	}
	return nil
}

func (f *File) record(err error) error {
	if f == nil || f.fs == nil {
		return err
	}
	return f.fs.record(err)
}

// Close marks the file closed on disk. The handle cannot be used afterwards,
// even if Close fails.
func (f *File) Close() error {
	if err := f.checkOpen("close"); err != nil {
		return f.record(err)
	}
	f.open = false
	util.DPrintf(1, "Close: inode %d\n", f.ip.Inum)
	return f.record(f.fs.dir.MarkClosed(f.loc))
}

// Read returns up to max bytes starting at the cursor and advances the
// cursor past them. Fewer bytes come back near the end of the file, and none
// at or past the end; neither is an error. Unwritten ranges read as zeros.
func (f *File) Read(max uint64) ([]byte, error) {
	if err := f.checkOpen("read"); err != nil {
		return nil, f.record(err)
	}
	if f.cursor >= f.ip.Size {
		return []byte{}, f.record(nil)
	}
	n := util.Min(max, f.ip.Size-f.cursor)
	data := make([]byte, n)
	var done uint64
	for done < n {
		off := f.cursor + done
		lbn := off / disk.BlockSize
		boff := off % disk.BlockSize
		chunk := util.Min(n-done, disk.BlockSize-boff)

		bn, err := f.fs.itable.Translate(f.ip, lbn)
		if err != nil {
			return nil, f.record(err)
		}
		if bn != common.NULLBNUM {
			blk, err := f.fs.d.Read(bn)
			if err != nil {
				return nil, f.record(fserr.IO("read", err))
			}
			copy(data[done:done+chunk], blk[boff:boff+chunk])
		}
		done += chunk
	}
	f.cursor += n
	util.DPrintf(5, "Read: inode %d %d bytes, cursor %d\n", f.ip.Inum, n, f.cursor)
	return data, f.record(nil)
}

// Write writes data at the cursor, growing the file as needed, and advances
// the cursor. A write that would pass MaxFileSize, or that needs more blocks
// than are free, is rejected before anything changes.
func (f *File) Write(data []byte) (uint64, error) {
	if err := f.checkOpen("write"); err != nil {
		return 0, f.record(err)
	}
	if f.mode == ReadOnly {
		return 0, f.record(fserr.New("write", fserr.FileReadOnly))
	}
	n := uint64(len(data))
	if util.SumOverflows(f.cursor, n) || f.cursor+n > common.MaxFileSize {
		return 0, f.record(fserr.New("write", fserr.ExceedsMaxFileSize))
	}
	if n == 0 {
		return 0, f.record(nil)
	}
	need, err := f.fs.itable.BlocksNeeded(f.ip, f.cursor, n)
	if err != nil {
		return 0, f.record(err)
	}
	if need > 0 {
		free, err := f.fs.itable.FreeBlocks()
		if err != nil {
			return 0, f.record(err)
		}
		if need > free {
			return 0, f.record(fserr.New("write", fserr.OutOfSpace))
		}
	}

	var done uint64
	for done < n {
		off := f.cursor + done
		lbn := off / disk.BlockSize
		boff := off % disk.BlockSize
		chunk := util.Min(n-done, disk.BlockSize-boff)

		bn, fresh, err := f.fs.itable.EnsureBlock(f.ip, lbn)
		if err != nil {
			return done, f.record(err)
		}
		var blk disk.Block
		if chunk == disk.BlockSize || fresh {
			blk = make(disk.Block, disk.BlockSize)
		} else {
			blk, err = f.fs.d.Read(bn)
			if err != nil {
				return done, f.record(fserr.IO("write", err))
			}
		}
		copy(blk[boff:boff+chunk], data[done:done+chunk])
		if err := f.fs.d.Write(bn, blk); err != nil {
			return done, f.record(fserr.IO("write", err))
		}
		done += chunk
	}

	if f.cursor+n > f.ip.Size {
		f.ip.Size = f.cursor + n
	}
	if err := f.fs.itable.Store(f.ip); err != nil {
		return done, f.record(err)
	}
	f.cursor += n
	util.DPrintf(5, "Write: inode %d %d bytes, size %d\n", f.ip.Inum, n, f.ip.Size)
	return n, f.record(nil)
}

// Seek moves the cursor to pos. pos may lie past the end of the file, up to
// MaxFileSize; the gap reads as zeros once something is written after it.
func (f *File) Seek(pos uint64) error {
	if err := f.checkOpen("seek"); err != nil {
		return f.record(err)
	}
	if pos > common.MaxFileSize {
		return f.record(fserr.New("seek", fserr.ExceedsMaxFileSize))
	}
	f.cursor = pos
	return f.record(nil)
}

// Length is the file's size as of its last write.
func (f *File) Length() (uint64, error) {
	if err := f.checkOpen("length"); err != nil {
		return 0, f.record(err)
	}
	return f.ip.Size, f.record(nil)
}

// Cursor is the current position.
func (f *File) Cursor() uint64 {
	return f.cursor
}

func (f *File) Mode() Mode {
	return f.mode
}
