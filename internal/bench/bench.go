// Package bench measures key generation, encapsulation and decapsulation
// latency of mlkem variants and renders the results as JSON or HTML.
package bench

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/KarpelesLab/mlkem"
)

// ErrMismatch is returned when a decapsulated secret differs from the
// encapsulated one.
var ErrMismatch = errors.New("bench: shared secret mismatch")

// Result holds per-operation latency statistics in milliseconds.
type Result struct {
	Variant    string `json:"variant"`
	Iterations int    `json:"iterations"`

	KeygenAvgMs float64 `json:"keygen_avg_ms"`
	KeygenMinMs float64 `json:"keygen_min_ms"`
	KeygenMaxMs float64 `json:"keygen_max_ms"`
	EncapAvgMs  float64 `json:"encap_avg_ms"`
	EncapMinMs  float64 `json:"encap_min_ms"`
	EncapMaxMs  float64 `json:"encap_max_ms"`
	DecapAvgMs  float64 `json:"decap_avg_ms"`
	DecapMinMs  float64 `json:"decap_min_ms"`
	DecapMaxMs  float64 `json:"decap_max_ms"`
}

// timings accumulates durations of one operation.
type timings struct {
	sum, min, max time.Duration
	count         int
}

func (t *timings) add(d time.Duration) {
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.sum += d
	t.count++
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (t *timings) stats() (avg, lo, hi float64) {
	if t.count == 0 {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return ms(t.sum) / float64(t.count), ms(t.min), ms(t.max)
}

// Run performs iterations rounds of key generation, encapsulation and
// decapsulation with kem, drawing randomness from rand, and checks that
// every round agrees on the shared secret.
func Run(kem *mlkem.KEM, iterations int, rand io.Reader) (*Result, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("bench: iterations must be positive, got %d", iterations)
	}

	var keygen, encap, decap timings
	for i := 0; i < iterations; i++ {
		start := time.Now()
		pk, sk, err := kem.GenerateKeyPair(rand)
		keygen.add(time.Since(start))
		if err != nil {
			return nil, err
		}

		start = time.Now()
		ct, ss, err := kem.Encapsulate(rand, pk)
		encap.add(time.Since(start))
		if err != nil {
			mlkem.Wipe(sk)
			return nil, err
		}

		start = time.Now()
		ss2, err := kem.Decapsulate(ct, sk)
		decap.add(time.Since(start))
		mlkem.Wipe(sk)
		if err != nil {
			mlkem.Wipe(ss)
			return nil, err
		}

		equal := subtle.ConstantTimeCompare(ss, ss2) == 1
		mlkem.Wipe(ss)
		mlkem.Wipe(ss2)
		if !equal {
			return nil, fmt.Errorf("%w: %s iteration %d", ErrMismatch, kem, i)
		}
	}

	r := &Result{Variant: kem.String(), Iterations: iterations}
	r.KeygenAvgMs, r.KeygenMinMs, r.KeygenMaxMs = keygen.stats()
	r.EncapAvgMs, r.EncapMinMs, r.EncapMaxMs = encap.stats()
	r.DecapAvgMs, r.DecapMinMs, r.DecapMaxMs = decap.stats()
	return r, nil
}

// WriteJSON writes results as indented JSON.
func WriteJSON(w io.Writer, results []*Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// SaveJSON writes results as indented JSON to path.
func SaveJSON(path string, results []*Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
