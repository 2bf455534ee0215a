package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// encoder accumulates a strict, deterministic binary encoding: task IDs
// and similar small values as big-endian uint32, lifetimes and heights
// as big-endian uint64, and raw payloads length-prefixed with a
// big-endian uint32 length. No library in the retrieval pack offers
// this kind of bespoke canonical encoding (see DESIGN.md); it is a
// direct, minimal port of the semantics named in §6 ("strict binary
// encoding, deterministic, canonical").
type encoder struct {
	buf bytes.Buffer
}

func newEncoder() *encoder { return &encoder{} }

func (e *encoder) writeUint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) writeBool(v bool) {
	if v {
		e.writeUint8(1)
	} else {
		e.writeUint8(0)
	}
}

func (e *encoder) writeBytes(b []byte) {
	e.writeUint32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) writeOptionalUint32(v *uint32) {
	if v == nil {
		e.writeBool(false)
		return
	}
	e.writeBool(true)
	e.writeUint32(*v)
}

func (e *encoder) bytes() []byte { return e.buf.Bytes() }

// decoder is the inverse of encoder, reading from a fixed byte slice in
// the same field order it was written.
type decoder struct {
	r *bytes.Reader
}

func newDecoder(b []byte) *decoder {
	return &decoder{r: bytes.NewReader(b)}
}

func (d *decoder) readUint8() (uint8, error) {
	b, err := d.r.ReadByte()
	return b, err
}

func (d *decoder) readUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (d *decoder) readUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (d *decoder) readBool() (bool, error) {
	v, err := d.readUint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("checkpoint: invalid bool tag %d", v)
	}
}

func (d *decoder) readBytes() ([]byte, error) {
	n, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(d.r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *decoder) readOptionalUint32() (*uint32, error) {
	present, err := d.readBool()
	if err != nil || !present {
		return nil, err
	}
	v, err := d.readUint32()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
