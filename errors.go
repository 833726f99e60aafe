package mlkem

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVariant indicates an unknown parameter set name.
	ErrInvalidVariant = errors.New("mlkem: invalid variant")

	// ErrInvalidKeyLength indicates a key of the wrong size for the variant.
	ErrInvalidKeyLength = errors.New("mlkem: invalid key length")

	// ErrInvalidPublicKeyLength indicates a public key of the wrong size.
	// It matches ErrInvalidKeyLength.
	ErrInvalidPublicKeyLength = fmt.Errorf("%w: public key", ErrInvalidKeyLength)

	// ErrInvalidSecretKeyLength indicates a secret key of the wrong size.
	// It matches ErrInvalidKeyLength.
	ErrInvalidSecretKeyLength = fmt.Errorf("%w: secret key", ErrInvalidKeyLength)

	// ErrInvalidCiphertextLength indicates a ciphertext of the wrong size.
	ErrInvalidCiphertextLength = errors.New("mlkem: invalid ciphertext length")

	// ErrInvalidSeedLength indicates a seed of the wrong size.
	ErrInvalidSeedLength = errors.New("mlkem: invalid seed length")

	// ErrDecode indicates a correctly sized but malformed key.
	ErrDecode = errors.New("mlkem: decode error")

	// ErrRandomness indicates the randomness source failed.
	ErrRandomness = errors.New("mlkem: randomness source failure")
)

var (
	errUnreducedCoefficient = fmt.Errorf("%w: coefficient not reduced mod q", ErrDecode)
	errKeyHashMismatch      = fmt.Errorf("%w: public key hash mismatch", ErrDecode)
)

// Error records the operation and variant that failed.
type Error struct {
	Op      string // Operation that failed
	Variant string // Parameter set name
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Variant == "" {
		return fmt.Sprintf("mlkem.%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("mlkem.%s(%s): %v", e.Op, e.Variant, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// lengthError reports a wrong input length for op.
func lengthError(op, variant string, sentinel error, got, want int) error {
	return &Error{
		Op:      op,
		Variant: variant,
		Err:     fmt.Errorf("%w: got %d bytes, want %d", sentinel, got, want),
	}
}
