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
)

func ZigZagEncode(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

func ZigZagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// FixedPointEncode scales v by 2^fractionalBits and rounds to the nearest
// integer. The result must fit in integerBits+fractionalBits signed bits.
func FixedPointEncode(v float64, integerBits, fractionalBits uint32) (int64, error) {
	total := integerBits + fractionalBits
	if total < 1 || total > 64 {
		return 0, fmt.Errorf("%w: fixed_point(%d, %d) width", ErrOutOfRange, integerBits, fractionalBits)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrOutOfRange, v)
	}
	scaled := math.Round(math.Ldexp(v, int(fractionalBits)))
	limit := math.Ldexp(1, int(total-1))
	if scaled < -limit || scaled >= limit {
		return 0, fmt.Errorf(
			"%w: %v does not fit fixed_point(%d, %d)",
			ErrOutOfRange, v, integerBits, fractionalBits,
		)
	}
	return int64(scaled), nil
}

func FixedPointDecode(v int64, fractionalBits uint32) float64 {
	return math.Ldexp(float64(v), -int(fractionalBits))
}

// SignExtend interprets the low n bits of v as a two's complement integer.
func SignExtend(v uint64, n uint32) int64 {
	if n == 0 || n >= 64 {
		return int64(v)
	}
	shift := 64 - n
	return int64(v<<shift) >> shift
}

func fitsUnsigned(v uint64, n uint32) bool {
	return n >= 64 || v>>n == 0
}

func fitsSigned(v int64, n uint32) bool {
	if n >= 64 {
		return true
	}
	if n == 0 {
		return v == 0
	}
	limit := int64(1) << (n - 1)
	return v >= -limit && v < limit
}
