package mlkem

import (
	"hash"
	"runtime"

	"golang.org/x/crypto/sha3"
)

// Wipe overwrites b with zeros. Callers should use it on secret keys and
// shared secrets once they are no longer needed.
func Wipe(b []byte) {
	wipeBytes(b)
}

func wipeBytes(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// secrets tracks the secret buffers of one operation so that a single
// deferred wipe clears all of them on every return path.
type secrets struct {
	bufs  [][]byte
	rings [][]ringElement
	ntts  [][]nttElement

	// hashes hold sponge states that absorbed secret inputs.
	hashes []hash.Hash
}

// bytes returns a zeroed buffer of size bytes owned by s.
func (s *secrets) bytes(size int) []byte {
	b := make([]byte, size)
	s.bufs = append(s.bufs, b)
	return b
}

// track registers an existing buffer with s.
func (s *secrets) track(b []byte) []byte {
	s.bufs = append(s.bufs, b)
	return b
}

// ringVector returns a zeroed vector of k polynomials owned by s.
func (s *secrets) ringVector(k int) []ringElement {
	v := make([]ringElement, k)
	s.rings = append(s.rings, v)
	return v
}

// nttVector returns a zeroed vector of k NTT-domain polynomials owned by s.
func (s *secrets) nttVector(k int) []nttElement {
	v := make([]nttElement, k)
	s.ntts = append(s.ntts, v)
	return v
}

// sha3256 returns a SHA3-256 instance owned by s.
func (s *secrets) sha3256() hash.Hash {
	h := sha3.New256()
	s.hashes = append(s.hashes, h)
	return h
}

// sha3512 returns a SHA3-512 instance owned by s.
func (s *secrets) sha3512() hash.Hash {
	h := sha3.New512()
	s.hashes = append(s.hashes, h)
	return h
}

// shake256 returns a SHAKE256 instance owned by s.
func (s *secrets) shake256() sha3.ShakeHash {
	h := sha3.NewShake256()
	s.hashes = append(s.hashes, h)
	return h
}

// wipe zeroes every buffer owned by s and resets its hash states.
func (s *secrets) wipe() {
	for _, b := range s.bufs {
		clear(b)
	}
	for _, v := range s.rings {
		clear(v)
	}
	for _, v := range s.ntts {
		clear(v)
	}
	for _, h := range s.hashes {
		h.Reset()
	}
	runtime.KeepAlive(s)
}
