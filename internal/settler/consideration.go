package settler

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// Consideration is the economic intent of one side of a trade: the token
// and amount that side must receive, from whom, and whether a fractional
// fill is acceptable.
type Consideration struct {
	Token              common.Address
	Amount             *big.Int
	Counterparty       common.Address
	PartialFillAllowed bool
}

// considerationTypeString is the canonical, recursive type definition of
// Consideration. It is embedded verbatim inside the witness type string
// handed to the signature-transfer service; any deviation in field order,
// naming, or whitespace invalidates every order signature.
const considerationTypeString = "Consideration(address token,uint256 amount,address counterparty,bool partialFillAllowed)"

// ConsiderationWitnessTypeString completes the transfer service's
// PermitWitnessTransferFrom parameter list: it closes the parameter list
// with the witness member and then carries the referenced struct
// definitions in EIP-712 order.
const ConsiderationWitnessTypeString = "Consideration consideration)" +
	considerationTypeString +
	permit2.TokenPermissionsTypeString

var considerationTypehash = crypto.Keccak256Hash([]byte(considerationTypeString))

// expectedConsiderationTypehash pins the typehash to the value deployed
// signers commit to. A rewrite of considerationTypeString that forgets to
// re-derive this constant fails at startup instead of silently rejecting
// every order signature.
var expectedConsiderationTypehash = common.HexToHash("0x7d806873084f389a66fd0315dead7adaad8ae6e8b6cf9fb0d3db61e5a91c3ffa")

func init() {
	if considerationTypehash != expectedConsiderationTypehash {
		panic("settler: consideration typehash drifted from " + expectedConsiderationTypehash.Hex())
	}
}

// Hash computes the canonical EIP-712 struct hash of the consideration.
// Pure and deterministic: equal considerations hash equal, and changing
// any field changes the hash.
func (c Consideration) Hash() common.Hash {
	var partial common.Hash
	if c.PartialFillAllowed {
		partial[31] = 1
	}
	return crypto.Keccak256Hash(
		considerationTypehash.Bytes(),
		common.LeftPadBytes(c.Token.Bytes(), 32),
		common.BigToHash(c.Amount).Bytes(),
		common.LeftPadBytes(c.Counterparty.Bytes(), 32),
		partial.Bytes(),
	)
}
