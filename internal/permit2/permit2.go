package permit2

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/logger"
)

// Service is an in-process deployment of the signature-transfer
// collaborator, backed by the environment state so nonce consumption and
// balance movement participate in call-level atomicity.
type Service struct {
	state           *chain.State
	spender         common.Address
	domainSeparator common.Hash
	logger          *zap.Logger
}

var _ SignatureTransfer = (*Service)(nil)

// NewService creates a transfer service bound to the environment state.
// spender is the settlement router's address: every struct hash commits
// to it, so a permit signed for one router cannot be replayed through
// another.
func NewService(state *chain.State, chainID *big.Int, serviceAddr, spender common.Address) *Service {
	return &Service{
		state:           state,
		spender:         spender,
		domainSeparator: DomainSeparator(chainID, serviceAddr),
		logger:          logger.Log,
	}
}

// DomainSeparator returns the service's EIP-712 domain separator.
func (s *Service) DomainSeparator() common.Hash {
	return s.domainSeparator
}

// PermitTransferFrom consumes a single-token permit.
func (s *Service) PermitTransferFrom(permit PermitTransferFrom, details SignatureTransferDetails, owner common.Address, sig []byte) error {
	structHash := hashPermitTransferFrom(permit, s.spender)
	if err := s.consume(structHash, permit.Nonce, permit.Deadline, owner, sig); err != nil {
		return err
	}
	return s.transfer(permit.Permitted, details, owner)
}

// PermitWitnessTransferFrom consumes a single-token permit whose
// signature additionally commits to the supplied witness.
func (s *Service) PermitWitnessTransferFrom(permit PermitTransferFrom, details SignatureTransferDetails, owner common.Address, witness common.Hash, witnessTypeString string, sig []byte) error {
	structHash := hashPermitWitnessTransferFrom(permit, s.spender, witness, witnessTypeString)
	if err := s.consume(structHash, permit.Nonce, permit.Deadline, owner, sig); err != nil {
		return err
	}
	return s.transfer(permit.Permitted, details, owner)
}

// PermitBatchTransferFrom consumes a batch permit.
func (s *Service) PermitBatchTransferFrom(permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, sig []byte) error {
	if len(details) != len(permit.Permitted) {
		return ErrLengthMismatch
	}
	structHash := hashPermitBatchTransferFrom(permit, s.spender)
	if err := s.consume(structHash, permit.Nonce, permit.Deadline, owner, sig); err != nil {
		return err
	}
	for i, d := range details {
		if err := s.transfer(permit.Permitted[i], d, owner); err != nil {
			return err
		}
	}
	return nil
}

// PermitBatchWitnessTransferFrom consumes a witnessed batch permit.
func (s *Service) PermitBatchWitnessTransferFrom(permit PermitBatchTransferFrom, details []SignatureTransferDetails, owner common.Address, witness common.Hash, witnessTypeString string, sig []byte) error {
	if len(details) != len(permit.Permitted) {
		return ErrLengthMismatch
	}
	structHash := hashPermitBatchWitnessTransferFrom(permit, s.spender, witness, witnessTypeString)
	if err := s.consume(structHash, permit.Nonce, permit.Deadline, owner, sig); err != nil {
		return err
	}
	for i, d := range details {
		if err := s.transfer(permit.Permitted[i], d, owner); err != nil {
			return err
		}
	}
	return nil
}

// consume verifies deadline, signature, and nonce, and marks the nonce
// used. Order matters: the nonce is only consumed once the signature is
// known good, and consumption is journaled so an enclosing revert frees
// it again.
func (s *Service) consume(structHash common.Hash, nonce, deadline *big.Int, owner common.Address, sig []byte) error {
	// Full-width comparison: deadlines are uint256 on the wire and a nil
	// or zero deadline is already in the past.
	now := new(big.Int).SetUint64(s.state.Timestamp())
	if deadline == nil || deadline.Cmp(now) < 0 {
		return fmt.Errorf("%w: deadline %v, now %s", ErrExpired, deadline, now)
	}

	digest := SigningDigest(s.domainSeparator, structHash)
	recovered, err := recoverSigner(digest, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if recovered != owner {
		s.logger.Debug("signature recovered to unexpected address",
			zap.String("recovered", recovered.Hex()),
			zap.String("claimed_owner", owner.Hex()),
		)
		return ErrSignatureInvalid
	}

	if !s.state.UseNonce(owner, common.BigToHash(nonce)) {
		return fmt.Errorf("%w: nonce %s for %s", ErrNonceUsed, nonce, owner.Hex())
	}
	return nil
}

func (s *Service) transfer(permitted TokenPermissions, details SignatureTransferDetails, owner common.Address) error {
	if details.RequestedAmount.Cmp(permitted.Amount) > 0 {
		return fmt.Errorf("%w: requested %s, permitted %s", ErrInvalidAmount, details.RequestedAmount, permitted.Amount)
	}
	if err := s.state.Transfer(permitted.Token, owner, details.To, details.RequestedAmount); err != nil {
		return fmt.Errorf("permit transfer failed: %w", err)
	}
	return nil
}

// recoverSigner recovers the signer address from a 65-byte r||s||v
// signature over digest. Both 0/1 and 27/28 recovery ids are accepted.
func recoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}
