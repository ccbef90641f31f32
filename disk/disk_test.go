package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBlock(b0 byte) Block {
	b := make(Block, BlockSize)
	b[0] = b0
	b[BlockSize-1] = b0
	return b
}

func testReadWrite(t *testing.T, d Disk) {
	assert := assert.New(t)
	assert.Equal(uint64(16), d.Size())

	blk, err := d.Read(3)
	require.Nil(t, err)
	assert.Equal(make(Block, BlockSize), blk, "fresh disk should be zero")

	require.Nil(t, d.Write(3, mkBlock(7)))
	blk, err = d.Read(3)
	require.Nil(t, err)
	assert.Equal(mkBlock(7), blk)

	buf := make(Block, BlockSize)
	require.Nil(t, d.ReadTo(3, buf))
	assert.Equal(byte(7), buf[BlockSize-1])

	assert.NotNil(d.Write(16, mkBlock(1)), "out-of-bounds write")
	_, err = d.Read(16)
	assert.NotNil(err, "out-of-bounds read")
	assert.NotNil(d.Write(0, make(Block, 10)), "short block")
	assert.Nil(d.Barrier())
}

func TestMemDisk(t *testing.T) {
	d := NewMemDisk(16)
	testReadWrite(t, d)
	assert.Nil(t, d.Close())
}

func TestMemDiskNoAlias(t *testing.T) {
	d := NewMemDisk(4)
	b := mkBlock(1)
	require.Nil(t, d.Write(0, b))
	b[0] = 2
	blk, err := d.Read(0)
	require.Nil(t, err)
	assert.Equal(t, byte(1), blk[0], "disk should not keep caller's buffer")
}

func TestFileDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := CreateFileDisk(path, 16)
	require.Nil(t, err)
	testReadWrite(t, d)
	require.Nil(t, d.Close())

	d, err = OpenFileDisk(path)
	require.Nil(t, err)
	assert.Equal(t, uint64(16), d.Size(), "size comes from the image")
	blk, err := d.Read(3)
	require.Nil(t, err)
	assert.Equal(t, mkBlock(7), blk, "file disk should persist")
	d.Close()
}

func TestOpenFileDiskKeepsContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := CreateFileDisk(path, 16)
	require.Nil(t, err)
	require.Nil(t, d.Write(15, mkBlock(9)))
	require.Nil(t, d.Close())

	d, err = OpenFileDisk(path)
	require.Nil(t, err)
	blk, err := d.Read(15)
	require.Nil(t, err)
	assert.Equal(t, mkBlock(9), blk, "last block should survive reopening")
	require.Nil(t, d.Close())

	info, err := os.Stat(path)
	require.Nil(t, err)
	assert.Equal(t, int64(16*BlockSize), info.Size())
}

func TestOpenFileDiskErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenFileDisk(filepath.Join(dir, "missing.img"))
	assert.NotNil(t, err, "open should not create an image")

	path := filepath.Join(dir, "odd.img")
	require.Nil(t, os.WriteFile(path, make([]byte, BlockSize+1), 0644))
	_, err = OpenFileDisk(path)
	assert.NotNil(t, err, "partial block")

	empty := filepath.Join(dir, "empty.img")
	require.Nil(t, os.WriteFile(empty, nil, 0644))
	_, err = OpenFileDisk(empty)
	assert.NotNil(t, err)
}
