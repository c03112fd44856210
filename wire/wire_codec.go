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

package wire

import (
	"cmp"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

// Message is the dynamic form of a message value, keyed by field name.
type Message map[string]any

// EnumValue is the dynamic form of an enum value. Value is nil for unit
// variants.
type EnumValue struct {
	Variant string
	Value   any
}

type MapEntry struct {
	Key   any
	Value any
}

// maxEmptyElements bounds the element count of a decoded collection whose
// elements may encode to zero bits.
const maxEmptyElements = 1 << 20

// Codec encodes and decodes dynamic values using the encodings of a
// compiled schema.
type Codec struct {
	schema *ir.Schema
}

func NewCodec(schema *ir.Schema) *Codec {
	return &Codec{schema: schema}
}

// Marshal encodes msg and pads the result to a whole number of bytes.
func (c *Codec) Marshal(desc ir.Descriptor, msg Message) ([]byte, error) {
	w := NewWriter()
	if err := c.Encode(w, desc, msg, nil); err != nil {
		return nil, err
	}
	w.Align()
	return w.Bytes(), nil
}

// Unmarshal decodes a message written by Marshal.
func (c *Codec) Unmarshal(desc ir.Descriptor, data []byte) (Message, error) {
	r := NewReader(data)
	msg, err := c.Decode(r, desc, nil)
	if err != nil {
		return nil, err
	}
	if r.Remaining() >= 8 {
		return nil, fmt.Errorf("%w: %d trailing bits", ErrInvalidValue, r.Remaining())
	}
	if err := r.SkipPadding(uint32(r.Remaining())); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode writes msg to w. Fields with the delta transform are encoded
// relative to the same field of baseline, which may be nil.
func (c *Codec) Encode(w *Writer, desc ir.Descriptor, msg, baseline Message) error {
	def := c.schema.Message(desc)
	if def == nil {
		return fmt.Errorf("%w: message %s", ErrUnknownType, desc)
	}
	return c.encodeMessage(w, def, msg, baseline)
}

// Decode reads a message from r, using baseline to undo delta encoding.
func (c *Codec) Decode(r *Reader, desc ir.Descriptor, baseline Message) (Message, error) {
	def := c.schema.Message(desc)
	if def == nil {
		return nil, fmt.Errorf("%w: message %s", ErrUnknownType, desc)
	}
	return c.decodeMessage(r, def, baseline)
}

func sortedFields(def *ir.Message) []*ir.Field {
	fields := slices.Clone(def.Fields)
	slices.SortFunc(fields, func(a, b *ir.Field) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return fields
}

func asMessage(v any) (Message, bool) {
	switch v := v.(type) {
	case nil:
		return nil, true
	case Message:
		return v, true
	case map[string]any:
		return v, true
	}
	return nil, false
}

func (c *Codec) encodeMessage(w *Writer, def *ir.Message, msg, baseline Message) error {
	for _, field := range sortedFields(def) {
		var base any
		if baseline != nil {
			base = baseline[field.Name]
		}
		if err := c.encodeValue(w, field.Encoding, msg[field.Name], base); err != nil {
			return fmt.Errorf("%s.%s: %w", def.Name, field.Name, err)
		}
	}
	return nil
}

func (c *Codec) decodeMessage(r *Reader, def *ir.Message, baseline Message) (Message, error) {
	msg := make(Message, len(def.Fields))
	for _, field := range sortedFields(def) {
		var base any
		if baseline != nil {
			base = baseline[field.Name]
		}
		value, err := c.decodeValue(r, field.Encoding, base)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, field.Name, err)
		}
		msg[field.Name] = value
	}
	return msg, nil
}

func (c *Codec) encodeValue(w *Writer, enc ir.Encoding, v, base any) error {
	if err := c.encodeBody(w, enc, v, base); err != nil {
		return err
	}
	if enc.PaddingBits != nil {
		w.Pad(*enc.PaddingBits)
	}
	return nil
}

func (c *Codec) encodeBody(w *Writer, enc ir.Encoding, v, base any) error {
	switch enc.Native.Kind {
	case ir.NativeKind_BOOL:
		b, ok := v.(bool)
		if !ok && v != nil {
			return typeError(enc, v)
		}
		if b {
			w.WriteBits(1, enc.Wire.Bits)
		} else {
			w.WriteBits(0, enc.Wire.Bits)
		}
		return nil
	case ir.NativeKind_INT, ir.NativeKind_FLOAT:
		return encodeNumber(w, enc, v, base)
	case ir.NativeKind_STRING:
		s, ok := v.(string)
		if !ok && v != nil {
			return typeError(enc, v)
		}
		return writeBytes(w, enc, []byte(s))
	case ir.NativeKind_BYTES:
		b, ok := v.([]byte)
		if !ok && v != nil {
			return typeError(enc, v)
		}
		return writeBytes(w, enc, b)
	case ir.NativeKind_ARRAY:
		items, ok := v.([]any)
		if !ok && v != nil {
			return typeError(enc, v)
		}
		if err := writeLength(w, enc, uint64(len(items))); err != nil {
			return err
		}
		for ii, item := range items {
			if err := c.encodeValue(w, *enc.Native.Element, item, nil); err != nil {
				return fmt.Errorf("[%d]: %w", ii, err)
			}
		}
		return nil
	case ir.NativeKind_MAP:
		entries, ok := v.([]MapEntry)
		if !ok && v != nil {
			return typeError(enc, v)
		}
		if err := writeLength(w, enc, uint64(len(entries))); err != nil {
			return err
		}
		for ii, entry := range entries {
			if err := c.encodeValue(w, *enc.Native.Key, entry.Key, nil); err != nil {
				return fmt.Errorf("key %d: %w", ii, err)
			}
			if err := c.encodeValue(w, *enc.Native.Value, entry.Value, nil); err != nil {
				return fmt.Errorf("value %d: %w", ii, err)
			}
		}
		return nil
	case ir.NativeKind_MESSAGE:
		def := c.schema.Message(*enc.Native.Descriptor)
		if def == nil {
			return fmt.Errorf("%w: message %s", ErrUnknownType, enc.Native.Descriptor)
		}
		msg, ok := asMessage(v)
		if !ok {
			return typeError(enc, v)
		}
		baseMsg, _ := asMessage(base)
		return c.encodeMessage(w, def, msg, baseMsg)
	case ir.NativeKind_ENUM:
		return c.encodeEnum(w, enc, v)
	}
	return fmt.Errorf("%w: native kind %q", ErrUnknownType, enc.Native.Kind)
}

func (c *Codec) encodeEnum(w *Writer, enc ir.Encoding, v any) error {
	def := c.schema.Enum(*enc.Native.Descriptor)
	if def == nil {
		return fmt.Errorf("%w: enum %s", ErrUnknownType, enc.Native.Descriptor)
	}
	var value EnumValue
	switch v := v.(type) {
	case nil:
	case EnumValue:
		value = v
	case string:
		value.Variant = v
	default:
		return typeError(enc, v)
	}

	var variant *ir.Variant
	if value.Variant == "" {
		variant = zeroVariant(def)
	} else {
		for _, candidate := range def.Variants {
			if candidate.Name == value.Variant {
				variant = candidate
				break
			}
		}
	}
	if variant == nil {
		return fmt.Errorf("%w: enum %s has no variant %q", ErrInvalidValue, def.Name, value.Variant)
	}

	w.WriteBits(uint64(variant.Index), def.Discriminant.Wire.Bits)
	if variant.Field == nil {
		if value.Value != nil {
			return fmt.Errorf("%w: unit variant %s carries a value", ErrInvalidValue, variant.Name)
		}
		return nil
	}
	if err := c.encodeValue(w, variant.Field.Encoding, value.Value, nil); err != nil {
		return fmt.Errorf("%s: %w", variant.Name, err)
	}
	return nil
}

// zeroVariant is the variant an absent enum encodes as: index 0 if declared,
// otherwise the lowest index.
func zeroVariant(def *ir.Enum) *ir.Variant {
	var lowest *ir.Variant
	for _, variant := range def.Variants {
		if lowest == nil || variant.Index < lowest.Index {
			lowest = variant
		}
	}
	return lowest
}

func writeLength(w *Writer, enc ir.Encoding, n uint64) error {
	if !fitsUnsigned(n, enc.Wire.PrefixBits) {
		return fmt.Errorf(
			"%w: length %d does not fit a %d-bit prefix",
			ErrOutOfRange, n, enc.Wire.PrefixBits,
		)
	}
	w.WriteBits(n, enc.Wire.PrefixBits)
	return nil
}

func writeBytes(w *Writer, enc ir.Encoding, b []byte) error {
	if err := writeLength(w, enc, uint64(len(b))); err != nil {
		return err
	}
	w.WriteBytes(b)
	return nil
}

func typeError(enc ir.Encoding, v any) error {
	return fmt.Errorf("%w: %T cannot be encoded as %s", ErrInvalidValue, v, enc.Native)
}

func (c *Codec) decodeValue(r *Reader, enc ir.Encoding, base any) (any, error) {
	value, err := c.decodeBody(r, enc, base)
	if err != nil {
		return nil, err
	}
	if enc.PaddingBits != nil {
		if err := r.SkipPadding(*enc.PaddingBits); err != nil {
			return nil, err
		}
	}
	return value, nil
}

func (c *Codec) decodeBody(r *Reader, enc ir.Encoding, base any) (any, error) {
	switch enc.Native.Kind {
	case ir.NativeKind_BOOL:
		v, err := r.ReadBits(enc.Wire.Bits)
		if err != nil {
			return nil, err
		}
		if v > 1 {
			return nil, fmt.Errorf("%w: bool encoded as %d", ErrInvalidValue, v)
		}
		return v == 1, nil
	case ir.NativeKind_INT, ir.NativeKind_FLOAT:
		return decodeNumber(r, enc, base)
	case ir.NativeKind_STRING:
		b, err := readBytes(r, enc)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: string is not valid UTF-8", ErrInvalidValue)
		}
		return string(b), nil
	case ir.NativeKind_BYTES:
		return readBytes(r, enc)
	case ir.NativeKind_ARRAY:
		n, err := c.readCount(r, enc, *enc.Native.Element)
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, min(n, maxEmptyElements))
		for ii := uint64(0); ii < n; ii++ {
			item, err := c.decodeValue(r, *enc.Native.Element, nil)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", ii, err)
			}
			items = append(items, item)
		}
		return items, nil
	case ir.NativeKind_MAP:
		n, err := c.readCount(r, enc, *enc.Native.Key)
		if err != nil {
			return nil, err
		}
		entries := make([]MapEntry, 0, min(n, maxEmptyElements))
		for ii := uint64(0); ii < n; ii++ {
			key, err := c.decodeValue(r, *enc.Native.Key, nil)
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", ii, err)
			}
			value, err := c.decodeValue(r, *enc.Native.Value, nil)
			if err != nil {
				return nil, fmt.Errorf("value %d: %w", ii, err)
			}
			entries = append(entries, MapEntry{Key: key, Value: value})
		}
		return entries, nil
	case ir.NativeKind_MESSAGE:
		def := c.schema.Message(*enc.Native.Descriptor)
		if def == nil {
			return nil, fmt.Errorf("%w: message %s", ErrUnknownType, enc.Native.Descriptor)
		}
		baseMsg, _ := asMessage(base)
		return c.decodeMessage(r, def, baseMsg)
	case ir.NativeKind_ENUM:
		return c.decodeEnum(r, enc)
	}
	return nil, fmt.Errorf("%w: native kind %q", ErrUnknownType, enc.Native.Kind)
}

func (c *Codec) decodeEnum(r *Reader, enc ir.Encoding) (any, error) {
	def := c.schema.Enum(*enc.Native.Descriptor)
	if def == nil {
		return nil, fmt.Errorf("%w: enum %s", ErrUnknownType, enc.Native.Descriptor)
	}
	index, err := r.ReadBits(def.Discriminant.Wire.Bits)
	if err != nil {
		return nil, err
	}
	for _, variant := range def.Variants {
		if uint64(variant.Index) != index {
			continue
		}
		value := EnumValue{Variant: variant.Name}
		if variant.Field != nil {
			value.Value, err = c.decodeValue(r, variant.Field.Encoding, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", variant.Name, err)
			}
		}
		return value, nil
	}
	return nil, fmt.Errorf("%w: enum %s has no variant with index %d", ErrInvalidValue, def.Name, index)
}

// readCount reads a collection length, rejecting counts the remaining data
// cannot hold.
func (c *Codec) readCount(r *Reader, enc, elem ir.Encoding) (uint64, error) {
	n, err := r.ReadBits(enc.Wire.PrefixBits)
	if err != nil {
		return 0, err
	}
	if minBits := minEncodedBits(elem); minBits > 0 {
		if n > r.Remaining()/minBits {
			return 0, fmt.Errorf("%w: %d elements exceed the remaining data", ErrShortBuffer, n)
		}
	} else if n > maxEmptyElements {
		return 0, fmt.Errorf("%w: %d elements", ErrOutOfRange, n)
	}
	return n, nil
}

func minEncodedBits(enc ir.Encoding) uint64 {
	var n uint64
	switch enc.Wire.Kind {
	case ir.WireKind_BITS:
		n = uint64(enc.Wire.Bits)
	case ir.WireKind_LENGTH_PREFIXED:
		n = uint64(enc.Wire.PrefixBits)
	}
	if enc.PaddingBits != nil {
		n += uint64(*enc.PaddingBits)
	}
	return n
}

func readBytes(r *Reader, enc ir.Encoding) ([]byte, error) {
	n, err := r.ReadBits(enc.Wire.PrefixBits)
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(n)
}
