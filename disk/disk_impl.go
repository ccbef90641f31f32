package disk

import (
	"fmt"
	"io"

	gdisk "github.com/tchajed/goose/machine/disk"
	"golang.org/x/sys/unix"

	"github.com/mit-pdos/go-flatfs/util"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	path      string
	fd        int
	numBlocks uint64
}

// CreateFileDisk opens (creating if needed) a disk image at path and sizes
// it to hold numBlocks blocks. A regular file is truncated or extended to
// fit, so existing contents past the new size are lost.
func CreateFileDisk(path string, numBlocks uint64) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("opening disk image `%s`: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat disk image `%s`: %w", path, err)
	}
	if (stat.Mode&unix.S_IFMT) == unix.S_IFREG && uint64(stat.Size) != numBlocks*BlockSize {
		err = unix.Ftruncate(fd, int64(numBlocks*BlockSize))
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("resizing disk image `%s`: %w", path, err)
		}
	}
	return &fileDisk{path: path, fd: fd, numBlocks: numBlocks}, nil
}

// OpenFileDisk opens an existing disk image at path without resizing it.
// The number of blocks comes from the size of the file or device.
func OpenFileDisk(path string) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening disk image `%s`: %w", path, err)
	}
	size, err := imageSize(fd)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("sizing disk image `%s`: %w", path, err)
	}
	if size == 0 || size%BlockSize != 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("disk image `%s` is %d bytes, not a whole number of blocks",
			path, size)
	}
	return &fileDisk{path: path, fd: fd, numBlocks: size / BlockSize}, nil
}

func imageSize(fd int) (uint64, error) {
	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		return 0, err
	}
	if (stat.Mode & unix.S_IFMT) == unix.S_IFREG {
		return uint64(stat.Size), nil
	}
	// block devices report their size at the end
	end, err := unix.Seek(fd, 0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return uint64(end), nil
}

func checkBlock(op string, a uint64, n uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return fmt.Errorf("%s: buffer is not block-sized (%d bytes)", op, len(buf))
	}
	if a >= n {
		return fmt.Errorf("%s: out-of-bounds block %d (disk has %d)", op, a, n)
	}
	return nil
}

func (d *fileDisk) ReadTo(a uint64, buf Block) error {
	if err := checkBlock("read", a, d.numBlocks, buf); err != nil {
		return err
	}
	_, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("reading `%s` block %d: %w", d.path, a, err)
	}
	util.DPrintf(20, "read: %d\n", a)
	return nil
}

func (d *fileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *fileDisk) Write(a uint64, v Block) error {
	if err := checkBlock("write", a, d.numBlocks, v); err != nil {
		return err
	}
	_, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	if err != nil {
		return fmt.Errorf("writing `%s` block %d: %w", d.path, a, err)
	}
	util.DPrintf(20, "write: %d\n", a)
	return nil
}

func (d *fileDisk) Size() uint64 {
	return d.numBlocks
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; see https://golang.org/src/internal/poll/fd_fsync_darwin.go
	// for more details. The correct replacement is to issue a fcntl syscall with
	// cmd F_FULLFSYNC.
	err := unix.Fsync(d.fd)
	if err != nil {
		return fmt.Errorf("syncing `%s`: %w", d.path, err)
	}
	util.DPrintf(20, "barrier\n")
	return nil
}

func (d *fileDisk) Close() error {
	return unix.Close(d.fd)
}

/////////////////////////
/////////////////////////

var _ Disk = (*memDisk)(nil)

// memDisk adapts goose's in-memory disk, which panics on misuse, to the
// error-returning Disk interface.
type memDisk struct {
	d         gdisk.Disk
	numBlocks uint64
}

func NewMemDisk(numBlocks uint64) Disk {
	return &memDisk{d: gdisk.NewMemDisk(numBlocks), numBlocks: numBlocks}
}

func (d *memDisk) ReadTo(a uint64, buf Block) error {
	if err := checkBlock("read", a, d.numBlocks, buf); err != nil {
		return err
	}
	copy(buf, d.d.Read(a))
	return nil
}

func (d *memDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *memDisk) Write(a uint64, v Block) error {
	if err := checkBlock("write", a, d.numBlocks, v); err != nil {
		return err
	}
	d.d.Write(a, util.CloneByteSlice(v))
	return nil
}

func (d *memDisk) Size() uint64 {
	return d.numBlocks
}

func (d *memDisk) Barrier() error {
	d.d.Barrier()
	return nil
}

func (d *memDisk) Close() error {
	d.d.Close()
	return nil
}
