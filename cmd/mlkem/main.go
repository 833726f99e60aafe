// Command mlkem inspects, benchmarks and demonstrates the ML-KEM and Kyber
// key encapsulation mechanisms.
package main

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/KarpelesLab/mlkem"
	"github.com/KarpelesLab/mlkem/internal/bench"
	"golang.org/x/crypto/chacha20poly1305"
)

const allVariants = "all"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of %s:
  %[1]s info [-variant name|all]
  %[1]s bench [-variant name|all] [-n iterations] [-json report] [-html chart]
  %[1]s demo [-variant name] [-msg message]
`, filepath.Base(os.Args[0]))
	os.Exit(2)
}

func init() {
	flag.Usage = usage
}

func main() {
	flag.Parse()          // for -h usage
	if len(os.Args) < 2 { // one command is required
		usage()
	}
	var err error
	switch os.Args[1] {
	case "info":
		fs := new(infoFlags).parse(os.Args[2:])
		err = info(os.Stdout, fs)
	case "bench":
		fs := new(benchFlags).parse(os.Args[2:])
		err = runBench(os.Stdout, fs)
	case "demo":
		fs := new(demoFlags).parse(os.Args[2:])
		err = demo(os.Stdout, fs)
	default:
		fmt.Fprintf(os.Stderr, "no command %q\n", os.Args[1])
		usage()
	}
	if err != nil {
		log.Fatal(err)
	}
}

// selectKEMs resolves a -variant flag value.
func selectKEMs(variant string) ([]*mlkem.KEM, error) {
	names := []string{variant}
	if variant == allVariants {
		names = mlkem.Variants()
	}
	kems := make([]*mlkem.KEM, 0, len(names))
	for _, name := range names {
		k, err := mlkem.New(name)
		if err != nil {
			return nil, err
		}
		kems = append(kems, k)
	}
	return kems, nil
}

type infoFlags struct {
	variant string
}

func (f *infoFlags) parse(args []string) *infoFlags {
	fs := flag.NewFlagSet("mlkem info", flag.ExitOnError)
	fs.StringVar(&f.variant, "variant", allVariants, "variant name or \"all\"")
	fs.Parse(args)
	return f
}

func info(w io.Writer, fs *infoFlags) error {
	kems, err := selectKEMs(fs.variant)
	if err != nil {
		return err
	}
	infos := make([]mlkem.AlgorithmInfo, len(kems))
	for i, k := range kems {
		infos[i] = k.AlgorithmInfo()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(infos)
}

type benchFlags struct {
	variant    string
	iterations int
	jsonPath   string
	htmlPath   string
}

func (f *benchFlags) parse(args []string) *benchFlags {
	fs := flag.NewFlagSet("mlkem bench", flag.ExitOnError)
	fs.StringVar(&f.variant, "variant", allVariants, "variant name or \"all\"")
	fs.IntVar(&f.iterations, "n", 100, "iterations per variant")
	fs.StringVar(&f.jsonPath, "json", "", "write JSON report to file")
	fs.StringVar(&f.htmlPath, "html", "", "write HTML chart to file")
	fs.Parse(args)
	return f
}

func runBench(w io.Writer, fs *benchFlags) error {
	kems, err := selectKEMs(fs.variant)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-12s %12s %12s %12s\n", "variant", "keygen ms", "encap ms", "decap ms")
	results := make([]*bench.Result, 0, len(kems))
	for _, k := range kems {
		r, err := bench.Run(k, fs.iterations, rand.Reader)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-12s %12.4f %12.4f %12.4f\n", r.Variant, r.KeygenAvgMs, r.EncapAvgMs, r.DecapAvgMs)
		results = append(results, r)
	}

	if fs.jsonPath != "" {
		if err := bench.SaveJSON(fs.jsonPath, results); err != nil {
			return err
		}
		log.Printf("wrote %s", fs.jsonPath)
	}
	if fs.htmlPath != "" {
		if err := bench.SaveHTML(fs.htmlPath, results); err != nil {
			return err
		}
		log.Printf("wrote %s", fs.htmlPath)
	}
	return nil
}

type demoFlags struct {
	variant string
	message string
}

func (f *demoFlags) parse(args []string) *demoFlags {
	fs := flag.NewFlagSet("mlkem demo", flag.ExitOnError)
	fs.StringVar(&f.variant, "variant", "ML-KEM-768", "variant name")
	fs.StringVar(&f.message, "msg", "Hello, post-quantum world!", "message to seal with the shared secret")
	fs.Parse(args)
	return f
}

// demo runs one key exchange and seals the message under the agreed secret.
func demo(w io.Writer, fs *demoFlags) error {
	k, err := mlkem.New(fs.variant)
	if err != nil {
		return err
	}
	p := k.Params()
	fmt.Fprintf(w, "%s (NIST level %d)\n", k, p.SecurityLevel)

	start := time.Now()
	pk, sk, err := k.GenerateKeyPair(rand.Reader)
	if err != nil {
		return err
	}
	defer mlkem.Wipe(sk)
	fmt.Fprintf(w, "keygen:      %v, public key %d bytes, secret key %d bytes\n",
		time.Since(start), len(pk), len(sk))

	start = time.Now()
	ct, senderSecret, err := k.Encapsulate(rand.Reader, pk)
	if err != nil {
		return err
	}
	defer mlkem.Wipe(senderSecret)
	fmt.Fprintf(w, "encapsulate: %v, ciphertext %d bytes\n", time.Since(start), len(ct))

	start = time.Now()
	receiverSecret, err := k.Decapsulate(ct, sk)
	if err != nil {
		return err
	}
	defer mlkem.Wipe(receiverSecret)
	fmt.Fprintf(w, "decapsulate: %v, shared secret %d bytes\n", time.Since(start), len(receiverSecret))

	if subtle.ConstantTimeCompare(senderSecret, receiverSecret) != 1 {
		return errors.New("shared secrets differ")
	}

	sealed, err := seal(senderSecret, []byte(fs.message))
	if err != nil {
		return err
	}
	opened, err := open(receiverSecret, sealed)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sealed %d byte message into %d bytes, opened: %q\n",
		len(fs.message), len(sealed), opened)
	return nil
}

// seal encrypts plaintext under key, returning nonce || ciphertext.
func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open reverses seal.
func open(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("sealed message too short")
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
