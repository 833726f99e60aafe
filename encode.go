package mlkem

// encodingSize12 is the size of a polynomial packed at 12 bits per coefficient.
const encodingSize12 = n * 12 / 8

// byteEncode appends the d-bit values of c to b, least significant bit first.
// Bit j of c[i] becomes bit (i*d+j) mod 8 of byte (i*d+j)/8.
// Implements FIPS 203 Algorithm 5 (ByteEncode_d) for d < 12.
func byteEncode(b []byte, c *[n]uint16, d uint8) []byte {
	var acc uint32
	var accBits uint8
	mask := uint32(1)<<d - 1
	for i := range c {
		acc |= (uint32(c[i]) & mask) << accBits
		accBits += d
		for accBits >= 8 {
			b = append(b, byte(acc))
			acc >>= 8
			accBits -= 8
		}
	}
	return b
}

// byteDecode reads n d-bit values from b, least significant bit first.
// b must hold at least 32*d bytes.
// Implements FIPS 203 Algorithm 6 (ByteDecode_d) for d < 12.
func byteDecode(b []byte, d uint8) (c [n]uint16) {
	var acc uint32
	var accBits uint8
	mask := uint32(1)<<d - 1
	for i := range c {
		for accBits < d {
			acc |= uint32(b[0]) << accBits
			b = b[1:]
			accBits += 8
		}
		c[i] = uint16(acc & mask)
		acc >>= d
		accBits -= d
	}
	return c
}

// polyByteEncode appends the 12-bit encoding of f to b.
// Implements FIPS 203 Algorithm 5 (ByteEncode_12).
func polyByteEncode[T ~[n]fieldElement](b []byte, f T) []byte {
	for i := 0; i < n; i += 2 {
		x := uint32(f[i]) | uint32(f[i+1])<<12
		b = append(b, byte(x), byte(x>>8), byte(x>>16))
	}
	return b
}

// polyByteDecode decodes the 12-bit encoding of a polynomial, rejecting any
// coefficient that is not reduced mod q. b must be encodingSize12 bytes long.
// Implements FIPS 203 Algorithm 6 (ByteDecode_12) with the modulus check of
// Section 7.2.
func polyByteDecode[T ~[n]fieldElement](b []byte) (T, error) {
	var f T
	for i := 0; i < n; i += 2 {
		x := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		var err error
		if f[i], err = fieldCheckReduced(uint16(x & 0xfff)); err != nil {
			return T{}, err
		}
		if f[i+1], err = fieldCheckReduced(uint16(x >> 12)); err != nil {
			return T{}, err
		}
		b = b[3:]
	}
	return f, nil
}

// polyByteDecodeReduce decodes the 12-bit encoding of a polynomial,
// reducing each coefficient mod q instead of rejecting it. It is used for
// secret vectors, where a data-dependent error return would leak.
func polyByteDecodeReduce[T ~[n]fieldElement](b []byte) T {
	var f T
	for i := 0; i < n; i += 2 {
		x := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		f[i] = fieldReduceOnce(uint16(x & 0xfff))
		f[i+1] = fieldReduceOnce(uint16(x >> 12))
		b = b[3:]
	}
	return f
}

// ringCompressAndEncode appends the d-bit compressed encoding of f to b.
func ringCompressAndEncode(b []byte, f ringElement, d uint8) []byte {
	c := compressPoly(f, d)
	return byteEncode(b, &c, d)
}

// ringDecodeAndDecompress decodes and decompresses a d-bit encoded
// polynomial. b must be 32*d bytes long.
func ringDecodeAndDecompress(b []byte, d uint8) ringElement {
	c := byteDecode(b, d)
	return decompressPoly(&c, d)
}

// ringEncodeMessage appends ByteEncode_1(Compress_1(f)) to b, one bit per
// coefficient, without an intermediate buffer.
func ringEncodeMessage(b []byte, f ringElement) []byte {
	for i := 0; i < n; i += 8 {
		var x byte
		for j := 0; j < 8; j++ {
			x |= byte(compress(f[i+j], 1)) << j
		}
		b = append(b, x)
	}
	return b
}

// ringDecodeMessage returns Decompress_1(ByteDecode_1(b)) for a 32-byte b.
func ringDecodeMessage(b []byte) ringElement {
	var f ringElement
	for i := range f {
		bit := uint16(b[i/8]>>(i%8)) & 1
		f[i] = decompress(bit, 1)
	}
	return f
}
