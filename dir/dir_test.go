package dir

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-flatfs/alloc"
	"github.com/mit-pdos/go-flatfs/common"
	"github.com/mit-pdos/go-flatfs/disk"
	"github.com/mit-pdos/go-flatfs/fserr"
	"github.com/mit-pdos/go-flatfs/inode"
)

func mkDir() (*Table, *inode.Table, *alloc.Alloc) {
	d := disk.NewMemDisk(common.DefaultNBlocks)
	blocks := alloc.MkAlloc(common.DataBitmapBlock, common.NDataBlocks(d.Size()))
	inodes := alloc.MkAlloc(common.InodeBitmapBlock, common.MaxFiles)
	it := inode.MkTable(d, inodes, blocks)
	return MkTable(d, it), it, inodes
}

func TestEntryEncode(t *testing.T) {
	assert := assert.New(t)
	assert.True(RecordSize <= common.DIRENTSZ)
	e := &Entry{Open: true, Inum: 0x0102, Name: "hello"}
	data := e.Encode()
	assert.Equal(int(common.DIRENTSZ), len(data))
	assert.Equal([]byte{1, 0, 2, 1}, data[0:4])
	assert.Equal([]byte("hello\x00"), data[4:10])
	assert.Equal(e, Decode(data))

	assert.True(Decode(make([]byte, common.DIRENTSZ)).Free(), "zeroed slot is free")
}

func TestValidName(t *testing.T) {
	assert := assert.New(t)
	assert.False(ValidName(""))
	assert.True(ValidName("a"))
	assert.True(ValidName(strings.Repeat("x", int(common.MaxNameLen))))
	assert.False(ValidName(strings.Repeat("x", int(common.MaxNameLen)+1)),
		"no room for the terminator")
	assert.False(ValidName("a\x00b"))
}

func TestLongestNameRoundTrip(t *testing.T) {
	name := strings.Repeat("n", int(common.MaxNameLen))
	e := Decode((&Entry{Inum: 511, Name: name}).Encode())
	assert.Equal(t, name, e.Name)
	assert.Equal(t, common.Inum(511), e.Inum)
}

func TestCreateLookup(t *testing.T) {
	tbl, _, _ := mkDir()
	loc, ip, err := tbl.Create("a")
	require.Nil(t, err)
	assert.Equal(t, Loc{Blkno: common.FirstDirBlock, Slot: 0}, loc)
	assert.Equal(t, common.Inum(0), ip.Inum)

	loc2, e, ok, err := tbl.Lookup("a")
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, loc, loc2)
	assert.True(t, e.Open, "created entries start open")

	_, _, ok, err = tbl.Lookup("b")
	require.Nil(t, err)
	assert.False(t, ok)
	ok, _ = tbl.Exists("")
	assert.False(t, ok)
}

func TestCreateErrors(t *testing.T) {
	tbl, _, _ := mkDir()
	_, _, err := tbl.Create("")
	assert.Equal(t, fserr.IllegalFilename, fserr.KindOf(err))
	_, _, err = tbl.Create(strings.Repeat("x", 507))
	assert.Equal(t, fserr.IllegalFilename, fserr.KindOf(err))

	_, _, err = tbl.Create("dup")
	require.Nil(t, err)
	_, _, err = tbl.Create("dup")
	assert.Equal(t, fserr.FileAlreadyExists, fserr.KindOf(err))
}

func TestCreateSlotOrder(t *testing.T) {
	tbl, _, _ := mkDir()
	for i := 0; i < 9; i++ {
		_, _, err := tbl.Create(fmt.Sprintf("f%d", i))
		require.Nil(t, err)
	}
	loc, _, _, _ := tbl.Lookup("f8")
	assert.Equal(t, Loc{Blkno: common.FirstDirBlock + 1, Slot: 0}, loc,
		"ninth entry starts the second directory block")
}

func TestCreateFull(t *testing.T) {
	tbl, _, inodes := mkDir()
	for i := uint64(0); i < common.MaxFiles; i++ {
		_, _, err := tbl.Create(fmt.Sprintf("file-%d", i))
		require.Nil(t, err)
	}
	_, _, err := tbl.Create("one-too-many")
	assert.Equal(t, fserr.OutOfSpace, fserr.KindOf(err))
	nf, _ := inodes.NumFree(tbl.d)
	assert.Equal(t, uint64(0), nf)
}

func TestCreateNoInodeCommitsNothing(t *testing.T) {
	tbl, _, inodes := mkDir()
	// exhaust inodes behind the directory's back
	for i := uint64(0); i < common.MaxFiles; i++ {
		inodes.MarkUsed(tbl.d, i)
	}
	_, _, err := tbl.Create("x")
	assert.Equal(t, fserr.OutOfSpace, fserr.KindOf(err))
	ls, err := tbl.List()
	require.Nil(t, err)
	assert.Empty(t, ls, "no slot written")
}

func TestOpenFlag(t *testing.T) {
	tbl, _, _ := mkDir()
	loc, _, err := tbl.Create("a")
	require.Nil(t, err)
	require.Nil(t, tbl.MarkClosed(loc))
	e, err := tbl.Get(loc)
	require.Nil(t, err)
	assert.False(t, e.Open)
	assert.Equal(t, "a", e.Name)
	require.Nil(t, tbl.MarkOpen(loc))
	e, _ = tbl.Get(loc)
	assert.True(t, e.Open)
}

func TestDelete(t *testing.T) {
	tbl, it, inodes := mkDir()
	loc, ip, err := tbl.Create("a")
	require.Nil(t, err)
	_, _, err = it.EnsureBlock(ip, 0)
	require.Nil(t, err)

	err = tbl.Delete("a")
	assert.Equal(t, fserr.FileOpen, fserr.KindOf(err), "open files are not deleted")

	require.Nil(t, tbl.MarkClosed(loc))
	require.Nil(t, tbl.Delete("a"))
	ok, _ := tbl.Exists("a")
	assert.False(t, ok)
	used, _ := inodes.IsUsed(tbl.d, uint64(ip.Inum))
	assert.False(t, used)
	free, _ := it.FreeBlocks()
	assert.Equal(t, common.NDataBlocks(common.DefaultNBlocks), free)

	err = tbl.Delete("a")
	assert.Equal(t, fserr.FileNotFound, fserr.KindOf(err))
}

func TestList(t *testing.T) {
	tbl, _, _ := mkDir()
	tbl.Create("x")
	tbl.Create("y")
	loc, _, _, _ := tbl.Lookup("x")
	tbl.MarkClosed(loc)
	tbl.Delete("x")
	tbl.Create("z")

	ls, err := tbl.List()
	require.Nil(t, err)
	require.Equal(t, 2, len(ls))
	assert.Equal(t, "z", ls[0].Entry.Name, "freed slot reused first")
	assert.Equal(t, "y", ls[1].Entry.Name)
}
