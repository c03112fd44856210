// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

// Package wire implements the bit-packed encoding described by compiled
// schemas.
//
// Bits are packed least-significant first: the first bit written is bit 0
// of byte 0, and multi-bit values are written low bit first.
package wire

import (
	"errors"
	"fmt"
)

var (
	ErrShortBuffer  = errors.New("wire: unexpected end of data")
	ErrOutOfRange   = errors.New("wire: value out of range")
	ErrInvalidValue = errors.New("wire: invalid value")
	ErrUnknownType  = errors.New("wire: unknown type")
)

type Writer struct {
	buf  []byte
	bits uint64
}

func NewWriter() *Writer {
	return &Writer{}
}

// WriteBits writes the low n bits of v. n must be at most 64.
func (w *Writer) WriteBits(v uint64, n uint32) {
	if n > 64 {
		panic(fmt.Sprintf("wire.Writer.WriteBits: n=%d exceeds 64", n))
	}
	if n < 64 {
		v &= 1<<n - 1
	}
	for n > 0 {
		off := uint32(w.bits % 8)
		if off == 0 {
			w.buf = append(w.buf, 0)
		}
		take := min(n, 8-off)
		w.buf[len(w.buf)-1] |= byte(v&(1<<take-1)) << off
		v >>= take
		n -= take
		w.bits += uint64(take)
	}
}

func (w *Writer) WriteBool(b bool) {
	if b {
		w.WriteBits(1, 1)
	} else {
		w.WriteBits(0, 1)
	}
}

func (w *Writer) WriteBytes(b []byte) {
	if w.bits%8 == 0 {
		w.buf = append(w.buf, b...)
		w.bits += uint64(len(b)) * 8
		return
	}
	for _, c := range b {
		w.WriteBits(uint64(c), 8)
	}
}

// Pad writes n zero bits.
func (w *Writer) Pad(n uint32) {
	for n > 64 {
		w.WriteBits(0, 64)
		n -= 64
	}
	w.WriteBits(0, n)
}

// Align pads to the next byte boundary.
func (w *Writer) Align() {
	if off := uint32(w.bits % 8); off != 0 {
		w.Pad(8 - off)
	}
}

// Len returns the number of bits written.
func (w *Writer) Len() uint64 {
	return w.bits
}

// Bytes returns the written data. A trailing partial byte is zero-filled.
func (w *Writer) Bytes() []byte {
	return w.buf
}

type Reader struct {
	buf []byte
	bit uint64
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() uint64 {
	return uint64(len(r.buf))*8 - r.bit
}

func (r *Reader) ReadBits(n uint32) (uint64, error) {
	if n > 64 {
		return 0, fmt.Errorf("%w: cannot read %d bits at once", ErrOutOfRange, n)
	}
	if uint64(n) > r.Remaining() {
		return 0, fmt.Errorf("%w: need %d bits, have %d", ErrShortBuffer, n, r.Remaining())
	}
	var v uint64
	var shift uint32
	for shift < n {
		off := uint32(r.bit % 8)
		take := min(n-shift, 8-off)
		chunk := uint64(r.buf[r.bit/8]>>off) & (1<<take - 1)
		v |= chunk << shift
		shift += take
		r.bit += uint64(take)
	}
	return v, nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadBits(1)
	return v == 1, err
}

func (r *Reader) ReadBytes(n uint64) ([]byte, error) {
	if n > r.Remaining()/8 {
		return nil, fmt.Errorf("%w: need %d bytes, have %d bits", ErrShortBuffer, n, r.Remaining())
	}
	out := make([]byte, n)
	if r.bit%8 == 0 {
		start := r.bit / 8
		copy(out, r.buf[start:start+n])
		r.bit += n * 8
		return out, nil
	}
	for ii := range out {
		c, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out[ii] = byte(c)
	}
	return out, nil
}

// SkipPadding consumes n bits, which must all be zero.
func (r *Reader) SkipPadding(n uint32) error {
	for n > 0 {
		take := min(n, 64)
		v, err := r.ReadBits(take)
		if err != nil {
			return err
		}
		if v != 0 {
			return fmt.Errorf("%w: non-zero padding", ErrInvalidValue)
		}
		n -= take
	}
	return nil
}
