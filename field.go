package mlkem

// fieldElement is an integer modulo q, always in reduced form [0, q).
type fieldElement uint16

// ringElement is a polynomial with n coefficients in Z_q.
type ringElement [n]fieldElement

// nttElement is the NTT representation of a polynomial.
type nttElement [n]fieldElement

// Barrett reduction constants.
const (
	// barrettMultiplier = floor(2^24 / q)
	barrettMultiplier = 5039
	barrettShift      = 24
)

// fieldCheckReduced returns a as a fieldElement, or an error if a >= q.
// Only used on public data.
func fieldCheckReduced(a uint16) (fieldElement, error) {
	if a >= q {
		return 0, errUnreducedCoefficient
	}
	return fieldElement(a), nil
}

// fieldReduceOnce reduces a value < 2q to [0, q).
func fieldReduceOnce(a uint16) fieldElement {
	x := a - q
	// If a < q, x underflowed and its top bit is set.
	x += (x >> 15) * q
	return fieldElement(x)
}

// fieldAdd returns (a + b) mod q.
func fieldAdd(a, b fieldElement) fieldElement {
	return fieldReduceOnce(uint16(a + b))
}

// fieldSub returns (a - b) mod q.
func fieldSub(a, b fieldElement) fieldElement {
	return fieldReduceOnce(uint16(a - b + q))
}

// fieldReduce performs Barrett reduction of a value a < 2q^2.
func fieldReduce(a uint32) fieldElement {
	quotient := uint32((uint64(a) * barrettMultiplier) >> barrettShift)
	return fieldReduceOnce(uint16(a - quotient*q))
}

// fieldMul returns (a * b) mod q.
func fieldMul(a, b fieldElement) fieldElement {
	return fieldReduce(uint32(a) * uint32(b))
}

// fieldMulSub returns a * (b - c) mod q.
func fieldMulSub(a, b, c fieldElement) fieldElement {
	return fieldReduce(uint32(a) * uint32(b-c+q))
}

// fieldAddMul returns (a * b + c * d) mod q.
func fieldAddMul(a, b, c, d fieldElement) fieldElement {
	return fieldReduce(uint32(a)*uint32(b) + uint32(c)*uint32(d))
}

// polyAdd adds two polynomials coefficient-wise.
func polyAdd[T ~[n]fieldElement](a, b T) (c T) {
	for i := range c {
		c[i] = fieldAdd(a[i], b[i])
	}
	return c
}

// polySub subtracts two polynomials coefficient-wise.
func polySub[T ~[n]fieldElement](a, b T) (c T) {
	for i := range c {
		c[i] = fieldSub(a[i], b[i])
	}
	return c
}
