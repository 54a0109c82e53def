package permit2

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signing helpers used by tests and by relayer tooling that constructs
// permits on behalf of local keys. On-chain owners sign the same digests
// through their wallets.

// SignPermitTransfer signs a single-token permit for consumption by
// spender through the service owning domainSeparator.
func SignPermitTransfer(key *ecdsa.PrivateKey, domainSeparator common.Hash, permit PermitTransferFrom, spender common.Address) ([]byte, error) {
	digest := SigningDigest(domainSeparator, hashPermitTransferFrom(permit, spender))
	return signDigest(key, digest)
}

// SignPermitWitnessTransfer signs a witnessed single-token permit.
func SignPermitWitnessTransfer(key *ecdsa.PrivateKey, domainSeparator common.Hash, permit PermitTransferFrom, spender common.Address, witness common.Hash, witnessTypeString string) ([]byte, error) {
	digest := SigningDigest(domainSeparator, hashPermitWitnessTransferFrom(permit, spender, witness, witnessTypeString))
	return signDigest(key, digest)
}

// SignPermitBatchTransfer signs a batch permit.
func SignPermitBatchTransfer(key *ecdsa.PrivateKey, domainSeparator common.Hash, permit PermitBatchTransferFrom, spender common.Address) ([]byte, error) {
	digest := SigningDigest(domainSeparator, hashPermitBatchTransferFrom(permit, spender))
	return signDigest(key, digest)
}

// SignPermitBatchWitnessTransfer signs a witnessed batch permit.
func SignPermitBatchWitnessTransfer(key *ecdsa.PrivateKey, domainSeparator common.Hash, permit PermitBatchTransferFrom, spender common.Address, witness common.Hash, witnessTypeString string) ([]byte, error) {
	digest := SigningDigest(domainSeparator, hashPermitBatchWitnessTransferFrom(permit, spender, witness, witnessTypeString))
	return signDigest(key, digest)
}

func signDigest(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	// Wallets emit v as 27/28.
	sig[64] += 27
	return sig, nil
}
