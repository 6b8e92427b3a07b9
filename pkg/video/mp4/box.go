package mp4

import (
	"encoding/binary"
)

// BoxType is mpeg box type.
type BoxType [4]byte

// ImmutableBox is common interface of box.
type ImmutableBox interface {
	// Type returns the BoxType.
	Type() BoxType

	// Size returns the marshaled size in bytes.
	// The size must be known before marshaling
	// since the box header contains the size.
	Size() int

	// Marshal box to buffer.
	Marshal(buf []byte, pos *int)
}

// Boxes is a structure of boxes that can be marshaled together.
type Boxes struct {
	Box      ImmutableBox
	Children []Boxes
}

// Size returns the total size of the box including children.
func (b *Boxes) Size() int {
	total := b.Box.Size() + 8
	for _, child := range b.Children {
		size := child.Size()
		total += size
	}
	return total
}

// Marshal box including children.
func (b *Boxes) Marshal(buf []byte, pos *int) {
	size := b.Size()
	writeBoxInfo(buf, pos, uint32(size), b.Box.Type())

	// The size of a empty box is 8 bytes.
	if size != 8 {
		b.Box.Marshal(buf, pos)
	}

	for _, child := range b.Children {
		child.Marshal(buf, pos)
	}
}

// MarshalTree marshals a sequence of top-level boxes into a single
// allocated buffer, a whole file when the sequence is ftyp through
// mdat.
func MarshalTree(boxes ...Boxes) []byte {
	total := 0
	for i := range boxes {
		total += boxes[i].Size()
	}

	buf := make([]byte, total)
	pos := 0
	for i := range boxes {
		boxes[i].Marshal(buf, &pos)
	}
	return buf
}

func writeBoxInfo(buf []byte, pos *int, size uint32, typ BoxType) {
	WriteUint32(buf, pos, size)
	Write(buf, pos, typ[:])
}

// Write writes len(p) bytes.
func Write(buf []byte, pos *int, p []byte) {
	*pos += copy(buf[*pos:], p)
}

// WriteByte writes 1 byte.
func WriteByte(buf []byte, pos *int, byt byte) {
	buf[*pos] = byt
	*pos++
}

// WriteUint16 writes 16 bits.
func WriteUint16(buf []byte, pos *int, r uint16) {
	binary.BigEndian.PutUint16(buf[*pos:], r)
	*pos += 2
}

// WriteUint32 writes 32 bits.
func WriteUint32(buf []byte, pos *int, r uint32) {
	binary.BigEndian.PutUint32(buf[*pos:], r)
	*pos += 4
}

// WriteUint64 writes 64 bits.
func WriteUint64(buf []byte, pos *int, r uint64) {
	binary.BigEndian.PutUint64(buf[*pos:], r)
	*pos += 8
}

// WriteString writes string and null character.
func WriteString(buf []byte, pos *int, str string) {
	Write(buf, pos, []byte(str))
	WriteByte(buf, pos, 0x00) // null character
}
