// Package blob implements the length-prefixed binary encoding used by
// kickoff's wire protocol. All integers are little-endian. Strings are
// a uint32 byte length followed by the raw bytes. Sequences are a
// uint64 element count followed by the elements. Optional values are a
// single presence byte followed by the element, if present.
package blob

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortData is returned when a read runs past the end of the data.
var ErrShortData = errors.New("blob: unexpected end of data")

// Writer appends encoded values to a growing byte buffer.
// The zero value is ready to use.
type Writer struct {
	buf []byte
}

// Bytes returns the encoded data written so far.
// The returned slice shares the writer's buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Int64(v int64) {
	w.Uint64(uint64(v))
}

// Bool writes a single byte, 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// String writes a uint32 byte length followed by the raw bytes.
// The bytes are preserved as-is, UTF-8 or not.
func (w *Writer) String(s string) {
	w.Uint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Count writes a sequence element count.
func (w *Writer) Count(n int) {
	w.Uint64(uint64(n))
}

// StringSlice writes a sequence of strings.
func (w *Writer) StringSlice(ss []string) {
	w.Count(len(ss))
	for _, s := range ss {
		w.String(s)
	}
}

// Reader decodes values from a byte slice in the order they were
// written. Every method returns an error on a short or malformed read;
// once a read fails the remaining data should be considered garbage.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. The reader does not copy data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining returns the number of bytes not yet consumed.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, ErrShortData
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) Uint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("blob: invalid bool byte %d", b[0])
}

func (r *Reader) String() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Count reads a sequence element count. A count larger than the
// remaining bytes cannot be valid, since every element encodes to at
// least one byte, and is rejected before the caller allocates for it.
func (r *Reader) Count() (int, error) {
	n, err := r.Uint64()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Remaining()) {
		return 0, fmt.Errorf("blob: sequence count %d exceeds remaining data", n)
	}
	return int(n), nil
}

func (r *Reader) StringSlice() ([]string, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	ss := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := r.String()
		if err != nil {
			return nil, err
		}
		ss = append(ss, s)
	}
	return ss, nil
}
