// Package kinds holds the error kinds every note operation reports.
//
// Callers classify failures with errors.Is against the sentinels below; the
// concrete message carries the detail.
package kinds

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidSeed        = errors.New("invalid seed phrase")
	ErrInvalidKey         = errors.New("invalid key")
	ErrInvalidNote        = errors.New("invalid note")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrSerialization      = errors.New("serialization error")
	ErrProofGeneration    = errors.New("proof generation failed")
	ErrVerificationFailed = errors.New("verification failed")

	// ErrBusy is transient: the proving pool is saturated and the call may be retried.
	ErrBusy = errors.New("prover busy")
)

var all = []error{
	ErrInvalidSeed,
	ErrInvalidKey,
	ErrInvalidNote,
	ErrInvalidSignature,
	ErrSerialization,
	ErrProofGeneration,
	ErrVerificationFailed,
	ErrBusy,
}

// Of returns the kind err belongs to, or nil if it carries none.
func Of(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range all {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Transient reports whether err only signals contention.
func Transient(err error) bool {
	return errors.Is(err, ErrBusy)
}
