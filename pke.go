package mlkem

// encryptionKey is a decoded K-PKE encryption key.
type encryptionKey struct {
	t   []nttElement // t̂ = Â∘ŝ + ê
	rho []byte       // seed of Â
}

// parseEncryptionKey decodes an encryption key of p.PublicKeySize bytes.
// With checked set, unreduced coefficients are rejected (the FIPS 203
// modulus check); otherwise they are reduced.
func parseEncryptionKey(p *ParameterSet, b []byte, checked bool) (*encryptionKey, error) {
	ek := &encryptionKey{
		t:   make([]nttElement, p.K),
		rho: b[p.K*encodingSize12:],
	}
	for i := range ek.t {
		chunk := b[i*encodingSize12 : (i+1)*encodingSize12]
		if !checked {
			ek.t[i] = polyByteDecodeReduce[nttElement](chunk)
			continue
		}
		var err error
		if ek.t[i], err = polyByteDecode[nttElement](chunk); err != nil {
			return nil, err
		}
	}
	return ek, nil
}

// pkeKeyGen derives a K-PKE key pair from the 32-byte seed d.
// The returned decryption key is owned by sec.
// Implements FIPS 203 Algorithm 13 (K-PKE.KeyGen).
func pkeKeyGen(p *ParameterSet, d []byte, sec *secrets) (ek, dk []byte) {
	g := sec.bytes(64)
	h := sec.sha3512()
	h.Write(d)
	if p.Standard {
		// Domain separation by module rank was added in FIPS 203.
		h.Write([]byte{byte(p.K)})
	}
	h.Sum(g[:0])
	rho, sigma := g[:32], g[32:]

	a := expandMatrix(rho, p.K)

	s := sec.nttVector(p.K)
	e := sec.nttVector(p.K)
	var nonce byte
	for i := range s {
		s[i] = ntt(samplePolyCBD(sigma, nonce, p.Eta1, sec))
		nonce++
	}
	for i := range e {
		e[i] = ntt(samplePolyCBD(sigma, nonce, p.Eta1, sec))
		nonce++
	}

	t := make([]nttElement, p.K)
	matrixVectorMul(t, a, s, false)
	vectorAdd(t, t, e)

	ek = make([]byte, 0, p.PublicKeySize)
	for i := range t {
		ek = polyByteEncode(ek, t[i])
	}
	ek = append(ek, rho...)

	dk = sec.bytes(p.K * encodingSize12)[:0]
	for i := range s {
		dk = polyByteEncode(dk, s[i])
	}
	return ek, dk
}

// pkeEncrypt encrypts the 32-byte message m under ek with the 32-byte
// randomness r. Secret intermediates are owned by sec.
// Implements FIPS 203 Algorithm 14 (K-PKE.Encrypt).
func pkeEncrypt(p *ParameterSet, ek *encryptionKey, m, r []byte, sec *secrets) []byte {
	a := expandMatrix(ek.rho, p.K)

	y := sec.nttVector(p.K)
	e1 := sec.ringVector(p.K)
	var nonce byte
	for i := range y {
		y[i] = ntt(samplePolyCBD(r, nonce, p.Eta1, sec))
		nonce++
	}
	for i := range e1 {
		e1[i] = samplePolyCBD(r, nonce, p.Eta2, sec)
		nonce++
	}
	// scratch holds e2, μ and v.
	scratch := sec.ringVector(3)
	scratch[0] = samplePolyCBD(r, nonce, p.Eta2, sec)

	uHat := sec.nttVector(p.K)
	matrixVectorMul(uHat, a, y, true)
	u := sec.ringVector(p.K)
	for i := range u {
		u[i] = invNTT(uHat[i])
	}
	vectorAdd(u, u, e1)

	scratch[1] = ringDecodeMessage(m)
	vHat := sec.nttVector(1)
	vHat[0] = dotProduct(ek.t, y)
	scratch[2] = polyAdd(polyAdd(invNTT(vHat[0]), scratch[0]), scratch[1])

	c := make([]byte, 0, p.CiphertextSize)
	for i := range u {
		c = ringCompressAndEncode(c, u[i], uint8(p.Du))
	}
	return ringCompressAndEncode(c, scratch[2], uint8(p.Dv))
}

// pkeDecrypt appends the 32-byte message recovered from ciphertext c
// with the secret vector ŝ to m.
// Implements FIPS 203 Algorithm 15 (K-PKE.Decrypt).
func pkeDecrypt(m []byte, p *ParameterSet, s []nttElement, c []byte, sec *secrets) []byte {
	du, dv := uint8(p.Du), uint8(p.Dv)
	uSize := n * int(du) / 8

	uHat := sec.nttVector(p.K)
	for i := range uHat {
		uHat[i] = ntt(ringDecodeAndDecompress(c[i*uSize:(i+1)*uSize], du))
	}
	v := ringDecodeAndDecompress(c[p.K*uSize:], dv)

	w := sec.ringVector(1)
	w[0] = polySub(v, invNTT(dotProduct(s, uHat)))
	return ringEncodeMessage(m, w[0])
}
