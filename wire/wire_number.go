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
	"fmt"
	"math"

	"github.com/coffeebeats/build-a-proto-sub000/ir"
)

type domain uint8

const (
	domain_UNSIGNED domain = iota
	domain_SIGNED
	domain_FLOAT
)

// number is an integer or float moving through the transform pipeline.
type number struct {
	domain domain
	u      uint64
	i      int64
	f      float64
}

func nativeDomain(native ir.NativeType) domain {
	switch {
	case native.Kind == ir.NativeKind_FLOAT:
		return domain_FLOAT
	case native.Signed:
		return domain_SIGNED
	}
	return domain_UNSIGNED
}

// stepDomain is the domain a value is in after transform runs on a value
// in domain d.
func stepDomain(transform ir.Transform, d domain) (domain, error) {
	switch transform.Kind {
	case ir.TransformKind_DELTA:
		if d == domain_UNSIGNED {
			return domain_SIGNED, nil
		}
		return d, nil
	case ir.TransformKind_FIXED_POINT:
		if d != domain_FLOAT {
			break
		}
		return domain_SIGNED, nil
	case ir.TransformKind_ZIG_ZAG:
		if d != domain_SIGNED {
			break
		}
		return domain_UNSIGNED, nil
	default:
		return d, fmt.Errorf("%w: unknown transform %q", ErrInvalidValue, transform.Kind)
	}
	return d, fmt.Errorf("%w: %s on a %s value", ErrInvalidValue, transform, d)
}

func (d domain) String() string {
	switch d {
	case domain_UNSIGNED:
		return "unsigned"
	case domain_SIGNED:
		return "signed"
	}
	return "float"
}

func hasDelta(enc ir.Encoding) bool {
	for _, transform := range enc.Transforms {
		if transform.Kind == ir.TransformKind_DELTA {
			return true
		}
	}
	return false
}

// forward applies one transform. base is the baseline after the same
// preceding transforms and is only read by delta.
func forward(transform ir.Transform, n, base number) (number, error) {
	if _, err := stepDomain(transform, n.domain); err != nil {
		return n, err
	}
	switch transform.Kind {
	case ir.TransformKind_DELTA:
		switch n.domain {
		case domain_UNSIGNED:
			return number{domain: domain_SIGNED, i: int64(n.u - base.u)}, nil
		case domain_SIGNED:
			return number{domain: domain_SIGNED, i: n.i - base.i}, nil
		}
		return number{domain: domain_FLOAT, f: n.f - base.f}, nil
	case ir.TransformKind_FIXED_POINT:
		quantized, err := FixedPointEncode(n.f, transform.IntegerBits, transform.FractionalBits)
		if err != nil {
			return n, err
		}
		return number{domain: domain_SIGNED, i: quantized}, nil
	}
	return number{domain: domain_UNSIGNED, u: ZigZagEncode(n.i)}, nil
}

// inverse undoes one transform. before is the domain the value was in
// prior to the transform and base is the baseline in that domain.
func inverse(transform ir.Transform, n number, before domain, base number) number {
	switch transform.Kind {
	case ir.TransformKind_DELTA:
		switch before {
		case domain_UNSIGNED:
			return number{domain: domain_UNSIGNED, u: base.u + uint64(n.i)}
		case domain_SIGNED:
			return number{domain: domain_SIGNED, i: base.i + n.i}
		}
		return number{domain: domain_FLOAT, f: base.f + n.f}
	case ir.TransformKind_FIXED_POINT:
		return number{domain: domain_FLOAT, f: FixedPointDecode(n.i, transform.FractionalBits)}
	}
	return number{domain: domain_SIGNED, i: ZigZagDecode(n.u)}
}

// pipeline runs the value and its baseline through the transforms in order.
// It returns the transformed value and, for each transform, the baseline as
// it was before that transform ran.
func pipeline(enc ir.Encoding, n, base number) (number, []number, error) {
	bases := make([]number, len(enc.Transforms))
	for ii, transform := range enc.Transforms {
		bases[ii] = base
		var err error
		if n, err = forward(transform, n, base); err != nil {
			return n, nil, err
		}
		if base, err = forward(transform, base, base); err != nil {
			return n, nil, fmt.Errorf("baseline: %w", err)
		}
	}
	return n, bases, nil
}

func loadBaseline(enc ir.Encoding, base any) (number, error) {
	if !hasDelta(enc) {
		return number{domain: nativeDomain(enc.Native)}, nil
	}
	b, err := loadNumber(enc.Native, base)
	if err != nil {
		return b, fmt.Errorf("baseline: %w", err)
	}
	return b, nil
}

func loadNumber(native ir.NativeType, v any) (number, error) {
	n := number{domain: nativeDomain(native)}
	var ok bool
	switch n.domain {
	case domain_UNSIGNED:
		n.u, ok = toUint64(v)
		ok = ok && fitsUnsigned(n.u, native.Bits)
	case domain_SIGNED:
		n.i, ok = toInt64(v)
		ok = ok && fitsSigned(n.i, native.Bits)
	case domain_FLOAT:
		n.f, ok = toFloat64(v)
	}
	if !ok {
		return n, fmt.Errorf("%w: %v (%T) is not a valid %s", ErrOutOfRange, v, v, native)
	}
	return n, nil
}

func encodeNumber(w *Writer, enc ir.Encoding, v, base any) error {
	n, err := loadNumber(enc.Native, v)
	if err != nil {
		return err
	}
	b, err := loadBaseline(enc, base)
	if err != nil {
		return err
	}
	if n, _, err = pipeline(enc, n, b); err != nil {
		return err
	}

	bits := enc.Wire.Bits
	switch n.domain {
	case domain_UNSIGNED:
		if !fitsUnsigned(n.u, bits) {
			return fmt.Errorf("%w: %d does not fit in %d bits", ErrOutOfRange, n.u, bits)
		}
		w.WriteBits(n.u, bits)
	case domain_SIGNED:
		if !fitsSigned(n.i, bits) {
			return fmt.Errorf("%w: %d does not fit in %d signed bits", ErrOutOfRange, n.i, bits)
		}
		w.WriteBits(uint64(n.i), bits)
	case domain_FLOAT:
		switch bits {
		case 32:
			w.WriteBits(uint64(math.Float32bits(float32(n.f))), 32)
		case 64:
			w.WriteBits(math.Float64bits(n.f), 64)
		default:
			return fmt.Errorf("%w: float encoded in %d bits", ErrInvalidValue, bits)
		}
	}
	return nil
}

func decodeNumber(r *Reader, enc ir.Encoding, base any) (any, error) {
	start := nativeDomain(enc.Native)
	domains := make([]domain, len(enc.Transforms)+1)
	domains[0] = start
	for ii, transform := range enc.Transforms {
		next, err := stepDomain(transform, domains[ii])
		if err != nil {
			return nil, err
		}
		domains[ii+1] = next
	}

	b, err := loadBaseline(enc, base)
	if err != nil {
		return nil, err
	}
	_, bases, err := pipeline(enc, b, b)
	if err != nil {
		return nil, err
	}

	bits := enc.Wire.Bits
	raw, err := r.ReadBits(bits)
	if err != nil {
		return nil, err
	}
	n := number{domain: domains[len(enc.Transforms)]}
	switch n.domain {
	case domain_UNSIGNED:
		n.u = raw
	case domain_SIGNED:
		n.i = SignExtend(raw, bits)
	case domain_FLOAT:
		switch bits {
		case 32:
			n.f = float64(math.Float32frombits(uint32(raw)))
		case 64:
			n.f = math.Float64frombits(raw)
		default:
			return nil, fmt.Errorf("%w: float encoded in %d bits", ErrInvalidValue, bits)
		}
	}

	for ii := len(enc.Transforms) - 1; ii >= 0; ii-- {
		n = inverse(enc.Transforms[ii], n, domains[ii], bases[ii])
	}

	switch start {
	case domain_UNSIGNED:
		return n.u, nil
	case domain_SIGNED:
		return n.i, nil
	}
	return n.f, nil
}

func toUint64(v any) (uint64, bool) {
	switch v := v.(type) {
	case nil:
		return 0, true
	case uint:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	}
	if i, ok := toInt64(v); ok && i >= 0 {
		return uint64(i), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case nil:
		return 0, true
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
