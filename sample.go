package mlkem

import (
	"golang.org/x/crypto/sha3"
)

// sampleNTT generates a uniformly random polynomial in NTT domain
// using rejection sampling from SHAKE128(rho || j || i) output.
// Implements FIPS 203 Algorithm 7 (SampleNTT).
func sampleNTT(rho []byte, j, i byte) nttElement {
	h := sha3.NewShake128()
	h.Write(rho)
	h.Write([]byte{j, i})

	var buf [168]byte // SHAKE128 rate
	var a nttElement
	k := 0

	for {
		h.Read(buf[:])
		for off := 0; off < len(buf); off += 3 {
			d1 := uint16(buf[off]) | uint16(buf[off+1]&0x0f)<<8
			d2 := uint16(buf[off+1]>>4) | uint16(buf[off+2])<<4
			if d1 < q {
				a[k] = fieldElement(d1)
				k++
			}
			if k == n {
				return a
			}
			if d2 < q {
				a[k] = fieldElement(d2)
				k++
			}
			if k == n {
				return a
			}
		}
	}
}

// prf expands s || b through SHAKE256 into out (PRF_eta with len(out) = 64*eta).
// The SHAKE state is owned by sec.
func prf(out, s []byte, b byte, sec *secrets) {
	h := sec.shake256()
	h.Write(s)
	h.Write([]byte{b})
	h.Read(out)
}

// samplePolyCBD samples a polynomial from the centered binomial distribution
// D_eta using PRF_eta(s, b). The bit sums are computed with masks so that no
// branch depends on the secret stream.
// Implements FIPS 203 Algorithm 8 (SamplePolyCBD).
func samplePolyCBD(s []byte, b byte, eta int, sec *secrets) ringElement {
	var buf [64 * 3]byte
	defer wipeBytes(buf[:])
	stream := buf[:64*eta]
	prf(stream, s, b, sec)

	var f ringElement
	switch eta {
	case 2:
		for i := 0; i < n; i += 8 {
			t := uint32(stream[0]) | uint32(stream[1])<<8 | uint32(stream[2])<<16 | uint32(stream[3])<<24
			d := t&0x55555555 + (t>>1)&0x55555555
			for j := 0; j < 8; j++ {
				x := fieldElement(d>>(4*j)) & 3
				y := fieldElement(d>>(4*j+2)) & 3
				f[i+j] = fieldSub(x, y)
			}
			stream = stream[4:]
		}
	case 3:
		for i := 0; i < n; i += 4 {
			t := uint32(stream[0]) | uint32(stream[1])<<8 | uint32(stream[2])<<16
			d := t&0x249249 + (t>>1)&0x249249 + (t>>2)&0x249249
			for j := 0; j < 4; j++ {
				x := fieldElement(d>>(6*j)) & 7
				y := fieldElement(d>>(6*j+3)) & 7
				f[i+j] = fieldSub(x, y)
			}
			stream = stream[3:]
		}
	default:
		panic("mlkem: unsupported eta")
	}
	return f
}
