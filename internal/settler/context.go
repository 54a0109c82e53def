package settler

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// ExecutionContext resolves, once per call, whose authority the action
// sequence runs under. It is derived at transaction entry and read-only
// for the duration of dispatch; the only mutation is the one-shot
// consumption latch on the enclosing taker permit.
type ExecutionContext struct {
	// Payer is the effective principal: the direct submitter, or the
	// recovered signer when the call arrived through meta-transaction
	// forwarding.
	Payer common.Address

	// IsForwarded reports whether Payer was authenticated by an enclosing
	// signature rather than by direct submission.
	IsForwarded bool

	// SequenceWitness is the hash of the exact action byte sequence, as
	// submitted. Only set on forwarded calls; the enclosing permit's
	// signature commits to it, so mutating any action byte invalidates
	// the outer signature.
	SequenceWitness common.Hash

	takerPermit     *permit2.PermitTransferFrom
	takerSig        []byte
	takerPermitUsed bool
}

// ActionsWitnessTypeString is the witness type descriptor for the
// enclosing permit of a forwarded call. Fixed constant of the protocol.
const ActionsWitnessTypeString = "ActionsWitness witness)" +
	"ActionsWitness(bytes[] actions)" +
	permit2.TokenPermissionsTypeString

const actionsWitnessMemberTypeString = "ActionsWitness(bytes[] actions)"

// SequenceWitness hashes an action sequence byte for byte, EIP-712
// array-of-bytes style: the witness commits to each action's exact
// encoding and to their order.
func SequenceWitness(actions [][]byte) common.Hash {
	packed := make([]byte, 0, 32*len(actions))
	for _, action := range actions {
		packed = append(packed, crypto.Keccak256(action)...)
	}
	arrayHash := crypto.Keccak256(packed)
	typehash := crypto.Keccak256([]byte(actionsWitnessMemberTypeString))
	return crypto.Keccak256Hash(typehash, arrayHash)
}

// directContext builds the context for a directly submitted call.
func directContext(payer common.Address) *ExecutionContext {
	return &ExecutionContext{Payer: payer}
}

// forwardedContext builds the context for a meta-transaction. The
// enclosing permit is carried here so the single settlement action that
// needs it can consume it; consumeTakerPermit enforces single use.
func forwardedContext(signer common.Address, actions [][]byte, permit *permit2.PermitTransferFrom, sig []byte) *ExecutionContext {
	return &ExecutionContext{
		Payer:           signer,
		IsForwarded:     true,
		SequenceWitness: SequenceWitness(actions),
		takerPermit:     permit,
		takerSig:        sig,
	}
}

// consumeTakerPermit hands out the enclosing permit exactly once.
func (ec *ExecutionContext) consumeTakerPermit() (*permit2.PermitTransferFrom, []byte, error) {
	if !ec.IsForwarded || ec.takerPermit == nil {
		return nil, nil, ErrPermissionDenied
	}
	if ec.takerPermitUsed {
		return nil, nil, ErrPermissionDenied
	}
	ec.takerPermitUsed = true
	return ec.takerPermit, ec.takerSig, nil
}
