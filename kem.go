package mlkem

import (
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

// KEM is an ML-KEM or Kyber instance for one parameter set.
// It holds no mutable state and is safe for concurrent use.
type KEM struct {
	params ParameterSet
}

// New returns the KEM for a variant name, such as "ML-KEM-768" or "Kyber768".
func New(variant string) (*KEM, error) {
	p, ok := lookupParameterSet(variant)
	if !ok {
		return nil, &Error{Op: "New", Err: fmt.Errorf("%w %q", ErrInvalidVariant, variant)}
	}
	return &KEM{params: p}, nil
}

// String returns the variant name.
func (k *KEM) String() string {
	return k.params.Name
}

// Params returns the parameter set of k.
func (k *KEM) Params() ParameterSet {
	return k.params
}

// GenerateKeyPair generates a new key pair, reading SeedSize bytes from rand.
func (k *KEM) GenerateKeyPair(rand io.Reader) (publicKey, secretKey []byte, err error) {
	var sec secrets
	defer sec.wipe()

	seed := sec.bytes(SeedSize)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, nil, k.randomnessError("GenerateKeyPair", err)
	}
	publicKey, secretKey = k.deriveKeyPair(seed[:32], seed[32:])
	return publicKey, secretKey, nil
}

// DeriveKeyPair deterministically derives a key pair from the 64-byte seed
// d || z.
func (k *KEM) DeriveKeyPair(seed []byte) (publicKey, secretKey []byte, err error) {
	if len(seed) != SeedSize {
		return nil, nil, lengthError("DeriveKeyPair", k.params.Name, ErrInvalidSeedLength, len(seed), SeedSize)
	}
	publicKey, secretKey = k.deriveKeyPair(seed[:32], seed[32:])
	return publicKey, secretKey, nil
}

// deriveKeyPair builds the encoded key pair. The secret key is
// dk_PKE || ek || H(ek) || z.
// Implements FIPS 203 Algorithm 16 (ML-KEM.KeyGen_internal).
func (k *KEM) deriveKeyPair(d, z []byte) (publicKey, secretKey []byte) {
	var sec secrets
	defer sec.wipe()

	ek, dk := pkeKeyGen(&k.params, d, &sec)
	h := sha3.Sum256(ek)

	secretKey = make([]byte, 0, k.params.SecretKeySize)
	secretKey = append(secretKey, dk...)
	secretKey = append(secretKey, ek...)
	secretKey = append(secretKey, h[:]...)
	secretKey = append(secretKey, z...)
	return ek, secretKey
}

// Encapsulate generates a shared secret and the ciphertext that transports it
// to the holder of the secret key matching publicKey. It reads MessageSize
// bytes from rand.
func (k *KEM) Encapsulate(rand io.Reader, publicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	const op = "Encapsulate"
	if len(publicKey) != k.params.PublicKeySize {
		return nil, nil, lengthError(op, k.params.Name, ErrInvalidPublicKeyLength, len(publicKey), k.params.PublicKeySize)
	}

	var sec secrets
	defer sec.wipe()

	m := sec.bytes(MessageSize)
	if _, err := io.ReadFull(rand, m); err != nil {
		return nil, nil, k.randomnessError(op, err)
	}
	return k.encapsulate(op, publicKey, m)
}

// EncapsulateDeterministic is like Encapsulate but takes the MessageSize-byte
// randomness explicitly. It is meant for known-answer tests.
func (k *KEM) EncapsulateDeterministic(publicKey, seed []byte) (ciphertext, sharedSecret []byte, err error) {
	const op = "EncapsulateDeterministic"
	if len(publicKey) != k.params.PublicKeySize {
		return nil, nil, lengthError(op, k.params.Name, ErrInvalidPublicKeyLength, len(publicKey), k.params.PublicKeySize)
	}
	if len(seed) != MessageSize {
		return nil, nil, lengthError(op, k.params.Name, ErrInvalidSeedLength, len(seed), MessageSize)
	}
	return k.encapsulate(op, publicKey, seed)
}

// encapsulate implements FIPS 203 Algorithm 17 (ML-KEM.Encaps_internal) and
// the Kyber round 3 encapsulation, which hashes the seed into m and derives
// the shared secret as KDF(K̄ || H(c)).
func (k *KEM) encapsulate(op string, publicKey, seed []byte) (ciphertext, sharedSecret []byte, err error) {
	p := &k.params
	ek, err := parseEncryptionKey(p, publicKey, p.Standard)
	if err != nil {
		return nil, nil, &Error{Op: op, Variant: p.Name, Err: err}
	}

	var sec secrets
	defer sec.wipe()

	m := seed
	if !p.Standard {
		m = sec.bytes(32)
		h := sec.sha3256()
		h.Write(seed)
		h.Sum(m[:0])
	}

	hpk := sha3.Sum256(publicKey)
	kr := sec.bytes(64)
	g := sec.sha3512()
	g.Write(m)
	g.Write(hpk[:])
	g.Sum(kr[:0])

	ciphertext = pkeEncrypt(p, ek, m, kr[32:], &sec)

	sharedSecret = make([]byte, SharedSecretSize)
	if p.Standard {
		copy(sharedSecret, kr[:32])
	} else {
		hc := sha3.Sum256(ciphertext)
		kdf(sharedSecret, kr[:32], hc[:], &sec)
	}
	return ciphertext, sharedSecret, nil
}

// Decapsulate recovers the shared secret from ciphertext using secretKey.
//
// A ciphertext that fails the re-encryption check does not produce an error:
// the result is a pseudorandom secret derived from the implicit rejection
// value z and the ciphertext.
// Implements FIPS 203 Algorithm 18 (ML-KEM.Decaps_internal) and the Kyber
// round 3 decapsulation.
func (k *KEM) Decapsulate(ciphertext, secretKey []byte) (sharedSecret []byte, err error) {
	const op = "Decapsulate"
	p := &k.params
	if len(ciphertext) != p.CiphertextSize {
		return nil, lengthError(op, p.Name, ErrInvalidCiphertextLength, len(ciphertext), p.CiphertextSize)
	}
	if len(secretKey) != p.SecretKeySize {
		return nil, lengthError(op, p.Name, ErrInvalidSecretKeyLength, len(secretKey), p.SecretKeySize)
	}

	dkSize := p.K * encodingSize12
	dkPKE := secretKey[:dkSize]
	ekPKE := secretKey[dkSize : dkSize+p.PublicKeySize]
	h := secretKey[dkSize+p.PublicKeySize : dkSize+p.PublicKeySize+32]
	z := secretKey[dkSize+p.PublicKeySize+32:]

	if p.Standard {
		// FIPS 203, Section 7.3 hash check.
		hek := sha3.Sum256(ekPKE)
		if subtle.ConstantTimeCompare(hek[:], h) != 1 {
			return nil, &Error{Op: op, Variant: p.Name, Err: errKeyHashMismatch}
		}
	}
	// Decapsulation keys only get the hash check, so the embedded
	// encryption key is reduced instead of checked and cannot fail.
	ek, _ := parseEncryptionKey(p, ekPKE, false)

	var sec secrets
	defer sec.wipe()

	s := sec.nttVector(p.K)
	for i := range s {
		s[i] = polyByteDecodeReduce[nttElement](dkPKE[i*encodingSize12 : (i+1)*encodingSize12])
	}

	m := pkeDecrypt(sec.bytes(32)[:0], p, s, ciphertext, &sec)

	kr := sec.bytes(64)
	g := sec.sha3512()
	g.Write(m)
	g.Write(h)
	g.Sum(kr[:0])

	c := sec.track(pkeEncrypt(p, ek, m, kr[32:], &sec))
	equal := subtle.ConstantTimeCompare(ciphertext, c)

	sharedSecret = make([]byte, SharedSecretSize)
	rejected := sec.bytes(SharedSecretSize)
	if p.Standard {
		copy(sharedSecret, kr[:32])
		kdf(rejected, z, ciphertext, &sec)
	} else {
		hc := sha3.Sum256(ciphertext)
		kdf(sharedSecret, kr[:32], hc[:], &sec)
		kdf(rejected, z, hc[:], &sec)
	}
	subtle.ConstantTimeCopy(1-equal, sharedSecret, rejected)
	return sharedSecret, nil
}

// kdf sets out to SHAKE256(a || b), truncated to len(out).
// With a = z and b = c this is the FIPS 203 function J.
// The SHAKE state is owned by sec.
func kdf(out, a, b []byte, sec *secrets) {
	h := sec.shake256()
	h.Write(a)
	h.Write(b)
	h.Read(out)
}

func (k *KEM) randomnessError(op string, err error) error {
	return &Error{Op: op, Variant: k.params.Name, Err: fmt.Errorf("%w: %w", ErrRandomness, err)}
}
