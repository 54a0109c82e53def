// Package permit2 implements the signature-based transfer service the
// settlement router consumes: single-use, off-chain-signed transfer
// permissions with optional witness binding, verified with EIP-712
// structured hashing and secp256k1 recovery.
//
// The typehash constants and witness type-string composition rules match
// the canonical Permit2 deployment byte for byte; a signature produced
// against the on-chain contract verifies here and vice versa.
package permit2

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrSignatureInvalid is returned when signature recovery fails or the
	// recovered address does not match the claimed owner.
	ErrSignatureInvalid = errors.New("invalid signer")

	// ErrExpired is returned when the permit deadline is before the
	// environment's block timestamp.
	ErrExpired = errors.New("signature expired")

	// ErrNonceUsed is returned when the permit nonce has already been
	// consumed.
	ErrNonceUsed = errors.New("nonce already used")

	// ErrInvalidAmount is returned when a requested transfer amount
	// exceeds the signed permitted amount.
	ErrInvalidAmount = errors.New("requested amount exceeds permitted amount")

	// ErrLengthMismatch is returned when batch transfer details do not
	// pair one-to-one with the batch permit's permitted entries.
	ErrLengthMismatch = errors.New("transfer details length mismatch")
)

// TokenPermissions is the signed token/amount pair of a permit.
type TokenPermissions struct {
	Token  common.Address
	Amount *big.Int
}

// PermitTransferFrom is a single-token signed transfer permission.
type PermitTransferFrom struct {
	Permitted TokenPermissions
	Nonce     *big.Int
	Deadline  *big.Int
}

// PermitBatchTransferFrom is a multi-token signed transfer permission
// consumed under one nonce.
type PermitBatchTransferFrom struct {
	Permitted []TokenPermissions
	Nonce     *big.Int
	Deadline  *big.Int
}

// SignatureTransferDetails names the recipient and requested amount of
// one transfer leg. RequestedAmount may be below the permitted amount;
// the remainder is forfeited with the nonce, never carried over.
type SignatureTransferDetails struct {
	To              common.Address
	RequestedAmount *big.Int
}

// SignatureTransfer is the contract the settlement layer consumes. It is
// the single source of truth for nonce, expiry, and signature
// correctness; callers never re-validate those locally.
type SignatureTransfer interface {
	// PermitTransferFrom consumes a single-token permit, moving the
	// requested amount from owner to the recipient in details.
	PermitTransferFrom(permit PermitTransferFrom, details SignatureTransferDetails, owner common.Address, sig []byte) error

	// PermitWitnessTransferFrom is PermitTransferFrom with an
	// application-defined witness hash bound into the signed payload. The
	// witnessTypeString must match what the owner signed exactly,
	// including field ordering and recursive type definitions.
	PermitWitnessTransferFrom(permit PermitTransferFrom, details SignatureTransferDetails, owner common.Address, witness common.Hash, witnessTypeString string, sig []byte) error

	// PermitBatchTransferFrom consumes a batch permit. details[i] pairs
	// with permit.Permitted[i].
	PermitBatchTransferFrom(permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, sig []byte) error

	// PermitBatchWitnessTransferFrom is the witnessed batch variant.
	PermitBatchWitnessTransferFrom(permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, witness common.Hash, witnessTypeString string, sig []byte) error
}
