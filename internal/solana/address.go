package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

const (
	publicKeyLen = 32
	signatureLen = 64
)

var (
	// ErrInvalidPublicKey is returned for strings that are not base58 32-byte keys.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidSignature is returned for strings that are not base58 64-byte signatures.
	ErrInvalidSignature = errors.New("invalid transaction signature")
)

// ValidatePublicKey checks that s decodes to a 32-byte public key.
func ValidatePublicKey(s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(b) != publicKeyLen {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(b))
	}
	return nil
}

// ValidateSignature checks that s decodes to a 64-byte transaction signature.
func ValidateSignature(s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(b) != signatureLen {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidSignature, len(b))
	}
	return nil
}

// IsOnCurve reports whether a base58 public key is a valid ed25519 point.
// Program-derived addresses are off-curve and cannot sign.
func IsOnCurve(pubkey string) bool {
	b, err := base58.Decode(pubkey)
	if err != nil || len(b) != publicKeyLen {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// LamportsToSOL converts lamports to SOL without float rounding.
func LamportsToSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, -9)
}
