package dir

import (
	"bytes"
	"encoding/binary"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-flatfs/common"
)

const (
	hdrSz   uint64 = 4 // u16 open | u16 inum
	nameFld uint64 = common.DIRENTSZ - hdrSz
)

// Entry is one directory slot. A slot is free iff Name is empty.
type Entry struct {
	Open bool
	Inum common.Inum
	Name string
}

func (e *Entry) Free() bool {
	return e.Name == ""
}

// Encode lays out e as
//
//	u16 open | u16 inum | name, NUL-terminated and zero-padded
//
// in DIRENTSZ bytes.
func (e *Entry) Encode() []byte {
	hdr := make([]byte, hdrSz)
	if e.Open {
		binary.LittleEndian.PutUint16(hdr[0:2], 1)
	}
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(e.Inum))
	name := make([]byte, nameFld)
	copy(name, e.Name)

	enc := marshal.NewEnc(common.DIRENTSZ)
	enc.PutBytes(hdr)
	enc.PutBytes(name)
	return enc.Finish()
}

func Decode(data []byte) *Entry {
	dec := marshal.NewDec(data)
	hdr := dec.GetBytes(hdrSz)
	name := dec.GetBytes(nameFld)
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return &Entry{
		Open: binary.LittleEndian.Uint16(hdr[0:2]) != 0,
		Inum: common.Inum(binary.LittleEndian.Uint16(hdr[2:4])),
		Name: string(name),
	}
}

// RecordSize is the number of bytes an encoded entry uses: the header plus
// the longest name and its terminator.
const RecordSize uint64 = hdrSz + common.MaxNameLen + 1

// ValidName reports whether name can be stored in an entry: non-empty, short
// enough to keep its terminator, and free of NUL bytes.
func ValidName(name string) bool {
	if name == "" || uint64(len(name)) > common.MaxNameLen {
		return false
	}
	return bytes.IndexByte([]byte(name), 0) < 0
}
