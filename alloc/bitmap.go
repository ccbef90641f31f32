package alloc

// Bitmap is a bit array over one block. Bit j of byte i is number i*8+j;
// 0 means free.
type Bitmap struct {
	bytes []byte
	max   uint64 // numbers >= max do not exist
}

func MkBitmap(bytes []byte, max uint64) Bitmap {
	if max > uint64(len(bytes))*8 {
		panic("MkBitmap: max exceeds bitmap")
	}
	return Bitmap{bytes: bytes, max: max}
}

func (bm Bitmap) check(n uint64) {
	if n >= bm.max {
		panic("bitmap: index out of range")
	}
}

func (bm Bitmap) IsUsed(n uint64) bool {
	bm.check(n)
	return bm.bytes[n/8]&(1<<(n%8)) != 0
}

func (bm Bitmap) MarkUsed(n uint64) {
	bm.check(n)
	bm.bytes[n/8] = bm.bytes[n/8] | (1 << (n % 8))
}

func (bm Bitmap) MarkFree(n uint64) {
	bm.check(n)
	bm.bytes[n/8] = bm.bytes[n/8] & ^(1 << (n % 8))
}

// FindFree returns the lowest free number.
func (bm Bitmap) FindFree() (uint64, bool) {
	for i := uint64(0); i*8 < bm.max; i++ {
		if bm.bytes[i] == 0xff {
			continue
		}
		for bit := uint64(0); bit < 8; bit++ {
			n := i*8 + bit
			if n >= bm.max {
				return 0, false
			}
			if bm.bytes[i]&(1<<bit) == 0 {
				return n, true
			}
		}
	}
	return 0, false
}

func (bm Bitmap) NumFree() uint64 {
	var used uint64
	for i := uint64(0); i*8 < bm.max; i++ {
		b := bm.bytes[i]
		if (i+1)*8 > bm.max {
			b = b & byte((1<<(bm.max%8))-1)
		}
		used += popCnt(b)
	}
	return bm.max - used
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}
