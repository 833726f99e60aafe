package mlkem

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"golang.org/x/crypto/sha3"
)

func TestKeySizes(t *testing.T) {
	tests := []struct {
		name                  string
		pk, sk, ct, k, du, dv int
	}{
		{"ML-KEM-512", 800, 1632, 768, 2, 10, 4},
		{"ML-KEM-768", 1184, 2400, 1088, 3, 10, 4},
		{"ML-KEM-1024", 1568, 3168, 1568, 4, 11, 5},
		{"Kyber512", 800, 1632, 768, 2, 10, 4},
		{"Kyber768", 1184, 2400, 1088, 3, 10, 4},
		{"Kyber1024", 1568, 3168, 1568, 4, 11, 5},
	}

	for _, tt := range tests {
		kem, err := New(tt.name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", tt.name, err)
		}
		p := kem.Params()
		if p.K != tt.k || p.Du != tt.du || p.Dv != tt.dv {
			t.Errorf("%s: got k=%d du=%d dv=%d", tt.name, p.K, p.Du, p.Dv)
		}
		if p.PublicKeySize != tt.pk {
			t.Errorf("%s PublicKeySize: got %d, want %d", tt.name, p.PublicKeySize, tt.pk)
		}
		if p.SecretKeySize != tt.sk {
			t.Errorf("%s SecretKeySize: got %d, want %d", tt.name, p.SecretKeySize, tt.sk)
		}
		if p.CiphertextSize != tt.ct {
			t.Errorf("%s CiphertextSize: got %d, want %d", tt.name, p.CiphertextSize, tt.ct)
		}

		pk, sk, err := kem.GenerateKeyPair(rand.Reader)
		if err != nil {
			t.Fatalf("%s: GenerateKeyPair failed: %v", tt.name, err)
		}
		ct, ss, err := kem.Encapsulate(rand.Reader, pk)
		if err != nil {
			t.Fatalf("%s: Encapsulate failed: %v", tt.name, err)
		}
		ss2, err := kem.Decapsulate(ct, sk)
		if err != nil {
			t.Fatalf("%s: Decapsulate failed: %v", tt.name, err)
		}
		if len(pk) != tt.pk || len(sk) != tt.sk || len(ct) != tt.ct || len(ss) != SharedSecretSize || len(ss2) != SharedSecretSize {
			t.Errorf("%s: sizes pk=%d sk=%d ct=%d ss=%d ss2=%d", tt.name, len(pk), len(sk), len(ct), len(ss), len(ss2))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, name := range Variants() {
		t.Run(name, func(t *testing.T) {
			kem, err := New(name)
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 20; i++ {
				pk, sk, err := kem.GenerateKeyPair(rand.Reader)
				if err != nil {
					t.Fatalf("GenerateKeyPair failed: %v", err)
				}
				ct, ss, err := kem.Encapsulate(rand.Reader, pk)
				if err != nil {
					t.Fatalf("Encapsulate failed: %v", err)
				}
				ss2, err := kem.Decapsulate(ct, sk)
				if err != nil {
					t.Fatalf("Decapsulate failed: %v", err)
				}
				if !bytes.Equal(ss, ss2) {
					t.Fatalf("shared secret mismatch:\n%x\n%x", ss, ss2)
				}
			}
		})
	}
}

func TestDeterministicKeyGen(t *testing.T) {
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	for _, name := range Variants() {
		kem, _ := New(name)
		pk1, sk1, err := kem.DeriveKeyPair(seed)
		if err != nil {
			t.Fatalf("%s: DeriveKeyPair failed: %v", name, err)
		}
		pk2, sk2, _ := kem.DeriveKeyPair(seed)
		if !bytes.Equal(pk1, pk2) || !bytes.Equal(sk1, sk2) {
			t.Errorf("%s: same seed produced different keys", name)
		}
		if !bytes.Equal(sk1[len(sk1)-32:], seed[32:]) {
			t.Errorf("%s: secret key does not end with z", name)
		}
	}
}

func TestVariantsDiffer(t *testing.T) {
	seed := make([]byte, SeedSize)
	m := make([]byte, MessageSize)
	pairs := [][2]string{
		{"ML-KEM-512", "Kyber512"},
		{"ML-KEM-768", "Kyber768"},
		{"ML-KEM-1024", "Kyber1024"},
	}
	for _, pair := range pairs {
		std, _ := New(pair[0])
		kyber, _ := New(pair[1])

		pk1, _, _ := std.DeriveKeyPair(seed)
		pk2, sk2, _ := kyber.DeriveKeyPair(seed)
		if bytes.Equal(pk1, pk2) {
			t.Errorf("%s and %s derived the same public key", pair[0], pair[1])
		}

		// The Kyber shared secret is not the ML-KEM one, even for the same key.
		ct, ss, err := kyber.EncapsulateDeterministic(pk2, m)
		if err != nil {
			t.Fatal(err)
		}
		ss2, err := std.Decapsulate(ct, sk2)
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Equal(ss, ss2) {
			t.Errorf("%s decapsulated a %s ciphertext", pair[0], pair[1])
		}
	}
}

func TestImplicitRejection(t *testing.T) {
	for _, name := range Variants() {
		t.Run(name, func(t *testing.T) {
			kem, _ := New(name)
			pk, sk, err := kem.GenerateKeyPair(rand.Reader)
			if err != nil {
				t.Fatal(err)
			}
			ct, ss, err := kem.Encapsulate(rand.Reader, pk)
			if err != nil {
				t.Fatal(err)
			}

			for _, pos := range []int{0, len(ct) / 2, len(ct) - 1} {
				bad := bytes.Clone(ct)
				bad[pos] ^= 0x01

				r1, err := kem.Decapsulate(bad, sk)
				if err != nil {
					t.Fatalf("Decapsulate of tampered ciphertext returned error: %v", err)
				}
				r2, err := kem.Decapsulate(bad, sk)
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(r1, r2) {
					t.Errorf("byte %d: rejection secret is not deterministic", pos)
				}
				if bytes.Equal(r1, ss) {
					t.Errorf("byte %d: tampered ciphertext decapsulated to the real secret", pos)
				}
				if len(r1) != SharedSecretSize {
					t.Errorf("byte %d: rejection secret size %d", pos, len(r1))
				}
			}

			// A different secret key rejects with a different value.
			_, sk2, _ := kem.GenerateKeyPair(rand.Reader)
			r1, _ := kem.Decapsulate(ct, sk)
			r2, _ := kem.Decapsulate(ct, sk2)
			if bytes.Equal(r1, r2) {
				t.Error("different secret keys produced the same secret")
			}
		})
	}
}

func TestInvalidLengths(t *testing.T) {
	for _, name := range Variants() {
		kem, _ := New(name)
		p := kem.Params()
		pk, sk, _ := kem.GenerateKeyPair(rand.Reader)
		ct, _, _ := kem.Encapsulate(rand.Reader, pk)

		// Length checks come before any randomness is drawn.
		noRead := readerFunc(func([]byte) (int, error) {
			t.Fatalf("%s: randomness read before the length check", name)
			return 0, nil
		})
		for _, size := range []int{0, p.PublicKeySize - 1, p.PublicKeySize + 1} {
			_, _, err := kem.Encapsulate(noRead, make([]byte, size))
			if !errors.Is(err, ErrInvalidPublicKeyLength) || !errors.Is(err, ErrInvalidKeyLength) {
				t.Errorf("%s: Encapsulate with %d-byte key: got %v", name, size, err)
			}
		}
		for _, size := range []int{0, p.CiphertextSize - 1, p.CiphertextSize + 1} {
			_, err := kem.Decapsulate(make([]byte, size), sk)
			if !errors.Is(err, ErrInvalidCiphertextLength) {
				t.Errorf("%s: Decapsulate with %d-byte ciphertext: got %v", name, size, err)
			}
		}
		for _, size := range []int{0, p.SecretKeySize - 1, p.SecretKeySize + 1} {
			_, err := kem.Decapsulate(ct, make([]byte, size))
			if !errors.Is(err, ErrInvalidSecretKeyLength) || !errors.Is(err, ErrInvalidKeyLength) {
				t.Errorf("%s: Decapsulate with %d-byte key: got %v", name, size, err)
			}
		}
		if _, _, err := kem.DeriveKeyPair(make([]byte, 32)); !errors.Is(err, ErrInvalidSeedLength) {
			t.Errorf("%s: DeriveKeyPair with short seed: got %v", name, err)
		}
		if _, _, err := kem.EncapsulateDeterministic(pk, make([]byte, 31)); !errors.Is(err, ErrInvalidSeedLength) {
			t.Errorf("%s: EncapsulateDeterministic with short seed: got %v", name, err)
		}

		var e *Error
		_, _, err := kem.Encapsulate(noRead, nil)
		if !errors.As(err, &e) || e.Op != "Encapsulate" || e.Variant != name {
			t.Errorf("%s: unexpected error detail %#v", name, err)
		}
	}
}

func TestInvalidVariant(t *testing.T) {
	for _, name := range []string{"", "Kyber", "ML-KEM-256", "kyber768", "ML-KEM-768 "} {
		kem, err := New(name)
		if !errors.Is(err, ErrInvalidVariant) {
			t.Errorf("New(%q): got %v, want ErrInvalidVariant", name, err)
		}
		if kem != nil {
			t.Errorf("New(%q) returned a KEM", name)
		}
	}
}

func TestModulusCheck(t *testing.T) {
	kem, _ := New("ML-KEM-768")
	pk, _, _ := kem.GenerateKeyPair(rand.Reader)

	// Set the first coefficient to 4095.
	bad := bytes.Clone(pk)
	bad[0] = 0xff
	bad[1] |= 0x0f
	if _, _, err := kem.Encapsulate(rand.Reader, bad); !errors.Is(err, ErrDecode) {
		t.Errorf("Encapsulate with unreduced key: got %v, want ErrDecode", err)
	}

	// Kyber keys are reduced instead.
	kyber, _ := New("Kyber768")
	if _, _, err := kyber.Encapsulate(rand.Reader, bad); err != nil {
		t.Errorf("Kyber768 Encapsulate with unreduced key: %v", err)
	}
}

func TestDecapsulateUnreducedKey(t *testing.T) {
	kem, _ := New("ML-KEM-768")
	p := kem.Params()
	pk, sk, _ := kem.GenerateKeyPair(rand.Reader)
	ct, _, _ := kem.Encapsulate(rand.Reader, pk)

	// Add q to a small coefficient of the ek embedded in sk and fix up H(ek),
	// so that only the modulus check could reject the key.
	dkSize := p.K * encodingSize12
	ek := sk[dkSize : dkSize+p.PublicKeySize]
	found := false
	for i := 0; i < p.K*encodingSize12; i += 3 {
		x := uint16(ek[i]) | uint16(ek[i+1]&0x0f)<<8
		if x+q < 1<<12 {
			x += q
			ek[i] = byte(x)
			ek[i+1] = ek[i+1]&0xf0 | byte(x>>8)
			found = true
			break
		}
	}
	if !found {
		t.Skip("no coefficient small enough to rewrite")
	}
	h := sha3.Sum256(ek)
	copy(sk[dkSize+p.PublicKeySize:], h[:])

	if _, _, err := kem.Encapsulate(rand.Reader, bytes.Clone(ek)); !errors.Is(err, ErrDecode) {
		t.Fatalf("Encapsulate with unreduced key: got %v, want ErrDecode", err)
	}
	ss1, err := kem.Decapsulate(ct, sk)
	if err != nil {
		t.Fatalf("Decapsulate with unreduced embedded key: %v", err)
	}
	ss2, _ := kem.Decapsulate(ct, sk)
	if !bytes.Equal(ss1, ss2) {
		t.Error("Decapsulate is not deterministic")
	}
}

func TestHashCheck(t *testing.T) {
	kem, _ := New("ML-KEM-512")
	pk, sk, _ := kem.GenerateKeyPair(rand.Reader)
	ct, _, _ := kem.Encapsulate(rand.Reader, pk)

	bad := bytes.Clone(sk)
	bad[len(bad)-33] ^= 1 // last byte of H(ek)
	if _, err := kem.Decapsulate(ct, bad); !errors.Is(err, ErrDecode) {
		t.Errorf("Decapsulate with corrupted H(ek): got %v, want ErrDecode", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestRandomnessFailure(t *testing.T) {
	kem, _ := New("ML-KEM-768")
	if _, _, err := kem.GenerateKeyPair(failingReader{}); !errors.Is(err, ErrRandomness) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("GenerateKeyPair: got %v", err)
	}
	pk, _, _ := kem.GenerateKeyPair(rand.Reader)
	if _, _, err := kem.Encapsulate(io.LimitReader(rand.Reader, 16), pk); !errors.Is(err, ErrRandomness) {
		t.Errorf("Encapsulate with short reader: got %v", err)
	}
}

func TestAlgorithmInfo(t *testing.T) {
	kem, _ := New("Kyber1024")
	info := kem.AlgorithmInfo()
	if info.Algorithm != "CRYSTALS-Kyber" || info.Variant != "Kyber1024" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.NISTLevel != 256 || info.ClaimedNISTLevel != 5 {
		t.Errorf("security levels: got %d/%d", info.NISTLevel, info.ClaimedNISTLevel)
	}
	if info.CiphertextSize != 1568 || info.SharedSecretSize != 32 {
		t.Errorf("sizes: got %+v", info)
	}

	kem, _ = New("ML-KEM-512")
	if info := kem.AlgorithmInfo(); info.Algorithm != "ML-KEM" || info.Version != "FIPS 203" || info.NISTLevel != 128 {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestParameterSetCopy(t *testing.T) {
	saved := MLKEM768
	MLKEM768.K = 7
	defer func() { MLKEM768 = saved }()

	kem, err := New("ML-KEM-768")
	if err != nil {
		t.Fatal(err)
	}
	if kem.Params().K != 3 {
		t.Errorf("New used the modified parameter set")
	}
}

func benchmarkKEM(b *testing.B, name string) (*KEM, []byte, []byte, []byte) {
	kem, err := New(name)
	if err != nil {
		b.Fatal(err)
	}
	pk, sk, _ := kem.GenerateKeyPair(rand.Reader)
	ct, _, _ := kem.Encapsulate(rand.Reader, pk)
	return kem, pk, sk, ct
}

func BenchmarkGenerateKeyPair512(b *testing.B)  { benchmarkKeyGen(b, "ML-KEM-512") }
func BenchmarkGenerateKeyPair768(b *testing.B)  { benchmarkKeyGen(b, "ML-KEM-768") }
func BenchmarkGenerateKeyPair1024(b *testing.B) { benchmarkKeyGen(b, "ML-KEM-1024") }

func benchmarkKeyGen(b *testing.B, name string) {
	kem, _, _, _ := benchmarkKEM(b, name)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		kem.GenerateKeyPair(rand.Reader)
	}
}

func BenchmarkEncapsulate512(b *testing.B)  { benchmarkEncapsulate(b, "ML-KEM-512") }
func BenchmarkEncapsulate768(b *testing.B)  { benchmarkEncapsulate(b, "ML-KEM-768") }
func BenchmarkEncapsulate1024(b *testing.B) { benchmarkEncapsulate(b, "ML-KEM-1024") }

func benchmarkEncapsulate(b *testing.B, name string) {
	kem, pk, _, _ := benchmarkKEM(b, name)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		kem.Encapsulate(rand.Reader, pk)
	}
}

func BenchmarkDecapsulate512(b *testing.B)  { benchmarkDecapsulate(b, "ML-KEM-512") }
func BenchmarkDecapsulate768(b *testing.B)  { benchmarkDecapsulate(b, "ML-KEM-768") }
func BenchmarkDecapsulate1024(b *testing.B) { benchmarkDecapsulate(b, "ML-KEM-1024") }

func benchmarkDecapsulate(b *testing.B, name string) {
	kem, _, sk, ct := benchmarkKEM(b, name)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		kem.Decapsulate(ct, sk)
	}
}
