package mlkem

// compress maps x to round(2^d / q * x) mod 2^d, rounding halves up.
// The division is a Barrett quotient followed by two masked corrections,
// so no branch depends on x.
// Implements FIPS 203 Equation 4.7.
func compress(x fieldElement, d uint8) uint16 {
	dividend := uint32(x) << d
	quotient := uint32(uint64(dividend) * barrettMultiplier >> barrettShift)
	remainder := dividend - quotient*q

	// remainder is in [0, 2q): round up once past q/2 and again past q + q/2.
	quotient += (q/2 - remainder) >> 31 & 1
	quotient += (q + q/2 - remainder) >> 31 & 1

	var mask uint32 = (1 << d) - 1
	return uint16(quotient & mask)
}

// decompress maps y to round(q / 2^d * y), rounding halves up.
// Implements FIPS 203 Equation 4.8.
func decompress(y uint16, d uint8) fieldElement {
	dividend := uint32(y) * q
	quotient := dividend >> d
	// The top bit of the remainder decides the rounding.
	quotient += dividend >> (d - 1) & 1
	return fieldReduceOnce(uint16(quotient))
}

// compressPoly compresses every coefficient of f to d bits.
func compressPoly(f ringElement, d uint8) (c [n]uint16) {
	for i := range f {
		c[i] = compress(f[i], d)
	}
	return c
}

// decompressPoly is the inverse mapping of compressPoly, up to rounding.
func decompressPoly(c *[n]uint16, d uint8) ringElement {
	var f ringElement
	for i := range f {
		f[i] = decompress(c[i], d)
	}
	return f
}
