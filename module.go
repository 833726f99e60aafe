package mlkem

// expandMatrix regenerates the k×k matrix Â from the public seed rho.
// Entry (i, j), stored at index i*k+j, is SampleNTT(rho || j || i).
func expandMatrix(rho []byte, k int) []nttElement {
	a := make([]nttElement, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			a[i*k+j] = sampleNTT(rho, byte(j), byte(i))
		}
	}
	return a
}

// matrixVectorMul sets out to Â∘v, or to Âᵀ∘v if transpose is set.
// All operands are in the NTT domain.
func matrixVectorMul(out, a, v []nttElement, transpose bool) {
	k := len(v)
	for i := range out {
		var acc nttElement
		for j := 0; j < k; j++ {
			entry := &a[i*k+j]
			if transpose {
				entry = &a[j*k+i]
			}
			acc = polyAdd(acc, nttMul(*entry, v[j]))
		}
		out[i] = acc
	}
}

// dotProduct returns the NTT-domain inner product of u and v.
func dotProduct(u, v []nttElement) nttElement {
	var acc nttElement
	for i := range u {
		acc = polyAdd(acc, nttMul(u[i], v[i]))
	}
	return acc
}

// vectorAdd sets out[i] = a[i] + b[i].
func vectorAdd[T ~[n]fieldElement](out, a, b []T) {
	for i := range out {
		out[i] = polyAdd(a[i], b[i])
	}
}
