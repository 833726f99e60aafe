// Package mlkem implements ML-KEM (Module-Lattice-Based Key-Encapsulation
// Mechanism) as specified in FIPS 203, together with the CRYSTALS-Kyber
// round 3 variant it was derived from.
//
// ML-KEM is a post-quantum key encapsulation mechanism standardized by NIST.
// This package supports three security levels, each under two names:
//   - ML-KEM-512 / Kyber512: NIST security level 1 (comparable to AES-128)
//   - ML-KEM-768 / Kyber768: NIST security level 3 (comparable to AES-192)
//   - ML-KEM-1024 / Kyber1024: NIST security level 5 (comparable to AES-256)
//
// The ML-KEM and Kyber variants share the lattice arithmetic and all sizes,
// but derive keys and shared secrets differently, so they do not interoperate.
//
// Basic usage:
//
//	kem, err := mlkem.New("ML-KEM-768")
//	if err != nil {
//	    // handle error
//	}
//	pk, sk, err := kem.GenerateKeyPair(rand.Reader)
//	if err != nil {
//	    // handle error
//	}
//	ct, ss, err := kem.Encapsulate(rand.Reader, pk)
//	if err != nil {
//	    // handle error
//	}
//	ss2, err := kem.Decapsulate(ct, sk)
package mlkem

// Global ML-KEM constants from FIPS 203.
const (
	// n is the number of coefficients in polynomials.
	n = 256

	// q is the modulus: q = 13*2^8 + 1 = 3329
	q = 3329

	// SharedSecretSize is the size of the shared secret.
	SharedSecretSize = 32

	// SeedSize is the size of the seed d || z used by DeriveKeyPair.
	SeedSize = 64

	// MessageSize is the size of the message seed used by
	// EncapsulateDeterministic.
	MessageSize = 32
)

// ParameterSet describes one ML-KEM or Kyber variant.
type ParameterSet struct {
	// Name is the variant name accepted by New.
	Name string

	K    int // module rank
	Eta1 int // noise parameter for s, e and y
	Eta2 int // noise parameter for e1 and e2
	Du   int // compression bits for u
	Dv   int // compression bits for v

	// SecurityLevel is the NIST security category (1, 3 or 5).
	SecurityLevel int
	// ClassicalBits is the AES-equivalent classical security in bits.
	ClassicalBits int

	PublicKeySize    int
	SecretKeySize    int
	CiphertextSize   int
	SharedSecretSize int

	// Standard reports whether the variant follows FIPS 203 (true) or the
	// CRYSTALS-Kyber round 3 submission (false).
	Standard bool
}

func newParameterSet(name string, k, eta1, du, dv, level, bits int, standard bool) ParameterSet {
	return ParameterSet{
		Name:             name,
		K:                k,
		Eta1:             eta1,
		Eta2:             2,
		Du:               du,
		Dv:               dv,
		SecurityLevel:    level,
		ClassicalBits:    bits,
		PublicKeySize:    k*encodingSize12 + 32,
		SecretKeySize:    2*k*encodingSize12 + 96,
		CiphertextSize:   32 * (du*k + dv),
		SharedSecretSize: SharedSecretSize,
		Standard:         standard,
	}
}

// Parameter sets.
var (
	MLKEM512  = newParameterSet("ML-KEM-512", 2, 3, 10, 4, 1, 128, true)
	MLKEM768  = newParameterSet("ML-KEM-768", 3, 2, 10, 4, 3, 192, true)
	MLKEM1024 = newParameterSet("ML-KEM-1024", 4, 2, 11, 5, 5, 256, true)

	Kyber512  = newParameterSet("Kyber512", 2, 3, 10, 4, 1, 128, false)
	Kyber768  = newParameterSet("Kyber768", 3, 2, 10, 4, 3, 192, false)
	Kyber1024 = newParameterSet("Kyber1024", 4, 2, 11, 5, 5, 256, false)
)

// parameterSets holds private copies of the exported parameter sets.
var parameterSets = []ParameterSet{MLKEM512, MLKEM768, MLKEM1024, Kyber512, Kyber768, Kyber1024}

// Variants returns the names accepted by New, in a stable order.
func Variants() []string {
	names := make([]string, len(parameterSets))
	for i, p := range parameterSets {
		names[i] = p.Name
	}
	return names
}

func lookupParameterSet(name string) (ParameterSet, bool) {
	for _, p := range parameterSets {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSet{}, false
}

// AlgorithmInfo describes a KEM instance for reports and tooling.
type AlgorithmInfo struct {
	Algorithm        string `json:"algorithm"`
	Variant          string `json:"variant"`
	Version          string `json:"version"`
	NISTLevel        int    `json:"nist_level"`
	ClaimedNISTLevel int    `json:"claimed_nist_level"`
	PublicKeySize    int    `json:"public_key_size"`
	SecretKeySize    int    `json:"secret_key_size"`
	CiphertextSize   int    `json:"ciphertext_size"`
	SharedSecretSize int    `json:"shared_secret_size"`
}

// AlgorithmInfo returns the metadata of k. NISTLevel is the AES-equivalent
// key size in bits, ClaimedNISTLevel the NIST security category.
func (k *KEM) AlgorithmInfo() AlgorithmInfo {
	info := AlgorithmInfo{
		Algorithm:        "ML-KEM",
		Variant:          k.params.Name,
		Version:          "FIPS 203",
		NISTLevel:        k.params.ClassicalBits,
		ClaimedNISTLevel: k.params.SecurityLevel,
		PublicKeySize:    k.params.PublicKeySize,
		SecretKeySize:    k.params.SecretKeySize,
		CiphertextSize:   k.params.CiphertextSize,
		SharedSecretSize: k.params.SharedSecretSize,
	}
	if !k.params.Standard {
		info.Algorithm = "CRYSTALS-Kyber"
		info.Version = "3.02"
	}
	return info
}
