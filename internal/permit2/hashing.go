package permit2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonical type strings. These are fixed constants of the wire protocol;
// changing a byte changes every typehash and invalidates all signatures.
const (
	// TokenPermissionsTypeString is exported because witness type strings
	// built by callers must embed it verbatim after their own struct
	// definition.
	TokenPermissionsTypeString = "TokenPermissions(address token,uint256 amount)"

	permitTransferFromTypeString = "PermitTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline)" +
		TokenPermissionsTypeString

	permitBatchTransferFromTypeString = "PermitBatchTransferFrom(TokenPermissions[] permitted,address spender,uint256 nonce,uint256 deadline)" +
		TokenPermissionsTypeString

	// Witness variants are completed by appending the caller-supplied
	// witness type string, which closes the parameter list and carries the
	// witness struct's own definition.
	permitWitnessTransferFromTypeStub = "PermitWitnessTransferFrom(TokenPermissions permitted,address spender,uint256 nonce,uint256 deadline,"

	permitBatchWitnessTransferFromTypeStub = "PermitBatchWitnessTransferFrom(TokenPermissions[] permitted,address spender,uint256 nonce,uint256 deadline,"

	eip712DomainTypeString = "EIP712Domain(string name,uint256 chainId,address verifyingContract)"

	domainName = "Permit2"
)

var (
	tokenPermissionsTypehash        = crypto.Keccak256Hash([]byte(TokenPermissionsTypeString))
	permitTransferFromTypehash      = crypto.Keccak256Hash([]byte(permitTransferFromTypeString))
	permitBatchTransferFromTypehash = crypto.Keccak256Hash([]byte(permitBatchTransferFromTypeString))
	eip712DomainTypehash            = crypto.Keccak256Hash([]byte(eip712DomainTypeString))
)

// DomainSeparator computes the EIP-712 domain separator for a deployment
// of the transfer service at verifyingContract on chainID.
func DomainSeparator(chainID *big.Int, verifyingContract common.Address) common.Hash {
	return crypto.Keccak256Hash(
		eip712DomainTypehash.Bytes(),
		crypto.Keccak256([]byte(domainName)),
		common.BigToHash(chainID).Bytes(),
		addressWord(verifyingContract),
	)
}

func hashTokenPermissions(p TokenPermissions) common.Hash {
	return crypto.Keccak256Hash(
		tokenPermissionsTypehash.Bytes(),
		addressWord(p.Token),
		common.BigToHash(p.Amount).Bytes(),
	)
}

func hashPermittedArray(permitted []TokenPermissions) common.Hash {
	packed := make([]byte, 0, 32*len(permitted))
	for _, p := range permitted {
		h := hashTokenPermissions(p)
		packed = append(packed, h.Bytes()...)
	}
	return crypto.Keccak256Hash(packed)
}

// hashPermitTransferFrom computes the struct hash for a single permit
// consumed by spender.
func hashPermitTransferFrom(permit PermitTransferFrom, spender common.Address) common.Hash {
	return crypto.Keccak256Hash(
		permitTransferFromTypehash.Bytes(),
		hashTokenPermissions(permit.Permitted).Bytes(),
		addressWord(spender),
		common.BigToHash(permit.Nonce).Bytes(),
		common.BigToHash(permit.Deadline).Bytes(),
	)
}

func hashPermitBatchTransferFrom(permit PermitBatchTransferFrom, spender common.Address) common.Hash {
	return crypto.Keccak256Hash(
		permitBatchTransferFromTypehash.Bytes(),
		hashPermittedArray(permit.Permitted).Bytes(),
		addressWord(spender),
		common.BigToHash(permit.Nonce).Bytes(),
		common.BigToHash(permit.Deadline).Bytes(),
	)
}

// hashPermitWitnessTransferFrom computes the struct hash for a witnessed
// single permit. The typehash is derived from the concatenation of the
// fixed stub and the caller's witness type string, so any deviation in
// the witness type definition yields a different digest.
func hashPermitWitnessTransferFrom(permit PermitTransferFrom, spender common.Address, witness common.Hash, witnessTypeString string) common.Hash {
	typehash := crypto.Keccak256([]byte(permitWitnessTransferFromTypeStub + witnessTypeString))
	return crypto.Keccak256Hash(
		typehash,
		hashTokenPermissions(permit.Permitted).Bytes(),
		addressWord(spender),
		common.BigToHash(permit.Nonce).Bytes(),
		common.BigToHash(permit.Deadline).Bytes(),
		witness.Bytes(),
	)
}

func hashPermitBatchWitnessTransferFrom(permit PermitBatchTransferFrom, spender common.Address, witness common.Hash, witnessTypeString string) common.Hash {
	typehash := crypto.Keccak256([]byte(permitBatchWitnessTransferFromTypeStub + witnessTypeString))
	return crypto.Keccak256Hash(
		typehash,
		hashPermittedArray(permit.Permitted).Bytes(),
		addressWord(spender),
		common.BigToHash(permit.Nonce).Bytes(),
		common.BigToHash(permit.Deadline).Bytes(),
		witness.Bytes(),
	)
}

// SigningDigest assembles the final EIP-191/EIP-712 digest that owners
// sign: keccak256(0x1901 || domainSeparator || structHash).
func SigningDigest(domainSeparator, structHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domainSeparator.Bytes(), structHash.Bytes())
}

func addressWord(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}
