package zipstream

import (
	"encoding/binary"
	"time"
)

var byteOrder = binary.LittleEndian

// readBuf consumes little-endian fields from a record in order.
type readBuf []byte

func (b *readBuf) uint16() uint16 {
	v := byteOrder.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := byteOrder.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := byteOrder.Uint64(*b)
	*b = (*b)[8:]
	return v
}

func (b *readBuf) sub(n int) readBuf {
	s := (*b)[:n]
	*b = (*b)[n:]
	return s
}

// msDosTime converts an MS-DOS date/time pair to UTC.
func msDosTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		int(dosDate>>9)+1980,
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0,
		time.UTC,
	)
}
