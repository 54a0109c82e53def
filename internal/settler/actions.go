package settler

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// Action is the closed sum of instructions the dispatcher understands.
// Each encoded action record is {4-byte selector}{ABI-encoded arguments};
// decoding is a pure function of the record bytes. New kinds extend this
// set; there is no open-ended dispatch.
type Action interface {
	selector() [4]byte
}

// Canonical action signatures. The selector of each action is the first
// four bytes of the keccak hash of its signature string.
const (
	sigTransferFrom      = "TRANSFER_FROM(address,((address,uint256),uint256,uint256),address,bytes)"
	sigBatchTransferFrom = "BATCH_TRANSFER_FROM(address,address,((address,uint256)[],uint256,uint256),address,bytes)"
	sigOTC               = "SETTLER_OTC(address,((address,uint256),uint256,uint256),address,bytes,((address,uint256),uint256,uint256),address,bytes)"
	sigMetaTxnOTC        = "METATXN_SETTLER_OTC(address,((address,uint256),uint256,uint256),address,bytes)"
	sigSelfFundedOTC     = "SETTLER_OTC_SELF_FUNDED(address,((address,uint256),uint256,uint256),address,bytes,address,address,uint256)"
	sigSwapExactIn       = "UNISWAP_SWAP_EXACT_IN(address,uint256,uint256,bytes)"
	sigSwapExactInVIP    = "UNISWAP_SWAP_EXACT_IN_VIP(address,((address,uint256),uint256,uint256),address,bytes,uint256,bytes)"
	sigTransferOut       = "TRANSFER_OUT(address,address,uint256)"
)

var (
	selTransferFrom      = selectorOf(sigTransferFrom)
	selBatchTransferFrom = selectorOf(sigBatchTransferFrom)
	selOTC               = selectorOf(sigOTC)
	selMetaTxnOTC        = selectorOf(sigMetaTxnOTC)
	selSelfFundedOTC     = selectorOf(sigSelfFundedOTC)
	selSwapExactIn       = selectorOf(sigSwapExactIn)
	selSwapExactInVIP    = selectorOf(sigSwapExactInVIP)
	selTransferOut       = selectorOf(sigTransferOut)
)

func selectorOf(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// TransferFrom consumes a single signed permit paying Recipient.
type TransferFrom struct {
	Recipient common.Address
	Permit    permit2.PermitTransferFrom
	Owner     common.Address
	Sig       []byte
}

func (TransferFrom) selector() [4]byte { return selTransferFrom }

// BatchTransferFrom consumes a batch permit paying Recipient from entry 0
// and FeeRecipient from the optional entry 1.
type BatchTransferFrom struct {
	Recipient    common.Address
	FeeRecipient common.Address
	Permit       permit2.PermitBatchTransferFrom
	Owner        common.Address
	Sig          []byte
}

func (BatchTransferFrom) selector() [4]byte { return selBatchTransferFrom }

// OTC settles a two-signature trade: the taker's permit pays the maker,
// the maker's permit pays Recipient.
type OTC struct {
	Recipient   common.Address
	MakerPermit permit2.PermitTransferFrom
	Maker       common.Address
	MakerSig    []byte
	TakerPermit permit2.PermitTransferFrom
	Taker       common.Address
	TakerSig    []byte
}

func (OTC) selector() [4]byte { return selOTC }

// MetaTxnOTC settles a trade whose taker side is funded by the enclosing
// meta-transaction permit. Only valid on a forwarded call.
type MetaTxnOTC struct {
	Recipient   common.Address
	MakerPermit permit2.PermitTransferFrom
	Maker       common.Address
	MakerSig    []byte
}

func (MetaTxnOTC) selector() [4]byte { return selMetaTxnOTC }

// SelfFundedOTC settles a maker-signed trade funded by the router's own
// live token balance, with proportional partial fills.
type SelfFundedOTC struct {
	Recipient      common.Address
	MakerPermit    permit2.PermitTransferFrom
	Maker          common.Address
	MakerSig       []byte
	Taker          common.Address
	TakerToken     common.Address
	MaxTakerAmount *big.Int
}

func (SelfFundedOTC) selector() [4]byte { return selSelfFundedOTC }

// SwapExactIn swaps AmountIn funded from the router's own balance.
type SwapExactIn struct {
	Recipient    common.Address
	AmountIn     *big.Int
	AmountOutMin *big.Int
	Path         []byte
}

func (SwapExactIn) selector() [4]byte { return selSwapExactIn }

// SwapExactInVIP swaps the permitted amount, funding the pool directly
// from the signer's permit with no intermediate custody hop.
type SwapExactInVIP struct {
	Recipient    common.Address
	Permit       permit2.PermitTransferFrom
	Owner        common.Address
	Sig          []byte
	AmountOutMin *big.Int
	Path         []byte
}

func (SwapExactInVIP) selector() [4]byte { return selSwapExactInVIP }

// TransferOut pays out Bips basis points of the router's live balance of
// Token to Recipient.
type TransferOut struct {
	Token     common.Address
	Recipient common.Address
	Bips      *big.Int
}

func (TransferOut) selector() [4]byte { return selTransferOut }

// ABI argument layouts.
var (
	typAddress = mustType("address", nil)
	typUint256 = mustType("uint256", nil)
	typBytes   = mustType("bytes", nil)

	tokenPermissionsComponents = []abi.ArgumentMarshaling{
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint256"},
	}
	permitComponents = []abi.ArgumentMarshaling{
		{Name: "permitted", Type: "tuple", Components: tokenPermissionsComponents},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	}
	batchPermitComponents = []abi.ArgumentMarshaling{
		{Name: "permitted", Type: "tuple[]", Components: tokenPermissionsComponents},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	}

	typPermit      = mustType("tuple", permitComponents)
	typBatchPermit = mustType("tuple", batchPermitComponents)

	argsTransferFrom = abi.Arguments{
		{Type: typAddress}, {Type: typPermit}, {Type: typAddress}, {Type: typBytes},
	}
	argsBatchTransferFrom = abi.Arguments{
		{Type: typAddress}, {Type: typAddress}, {Type: typBatchPermit}, {Type: typAddress}, {Type: typBytes},
	}
	argsOTC = abi.Arguments{
		{Type: typAddress}, {Type: typPermit}, {Type: typAddress}, {Type: typBytes},
		{Type: typPermit}, {Type: typAddress}, {Type: typBytes},
	}
	argsMetaTxnOTC = abi.Arguments{
		{Type: typAddress}, {Type: typPermit}, {Type: typAddress}, {Type: typBytes},
	}
	argsSelfFundedOTC = abi.Arguments{
		{Type: typAddress}, {Type: typPermit}, {Type: typAddress}, {Type: typBytes},
		{Type: typAddress}, {Type: typAddress}, {Type: typUint256},
	}
	argsSwapExactIn = abi.Arguments{
		{Type: typAddress}, {Type: typUint256}, {Type: typUint256}, {Type: typBytes},
	}
	argsSwapExactInVIP = abi.Arguments{
		{Type: typAddress}, {Type: typPermit}, {Type: typAddress}, {Type: typBytes},
		{Type: typUint256}, {Type: typBytes},
	}
	argsTransferOut = abi.Arguments{
		{Type: typAddress}, {Type: typAddress}, {Type: typUint256},
	}
)

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(fmt.Sprintf("settler: bad ABI type %q: %v", t, err))
	}
	return typ
}

// rawTokenPermissions mirrors the ABI tuple layout of
// permit2.TokenPermissions for reflection-based packing.
type rawTokenPermissions struct {
	Token  common.Address
	Amount *big.Int
}

type rawPermit struct {
	Permitted rawTokenPermissions
	Nonce     *big.Int
	Deadline  *big.Int
}

type rawBatchPermit struct {
	Permitted []rawTokenPermissions
	Nonce     *big.Int
	Deadline  *big.Int
}

func fromRawPermit(raw rawPermit) permit2.PermitTransferFrom {
	return permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{Token: raw.Permitted.Token, Amount: raw.Permitted.Amount},
		Nonce:     raw.Nonce,
		Deadline:  raw.Deadline,
	}
}

func toRawPermit(p permit2.PermitTransferFrom) rawPermit {
	return rawPermit{
		Permitted: rawTokenPermissions{Token: p.Permitted.Token, Amount: p.Permitted.Amount},
		Nonce:     p.Nonce,
		Deadline:  p.Deadline,
	}
}

func fromRawBatchPermit(raw rawBatchPermit) permit2.PermitBatchTransferFrom {
	permitted := make([]permit2.TokenPermissions, len(raw.Permitted))
	for i, p := range raw.Permitted {
		permitted[i] = permit2.TokenPermissions{Token: p.Token, Amount: p.Amount}
	}
	return permit2.PermitBatchTransferFrom{Permitted: permitted, Nonce: raw.Nonce, Deadline: raw.Deadline}
}

func toRawBatchPermit(p permit2.PermitBatchTransferFrom) rawBatchPermit {
	permitted := make([]rawTokenPermissions, len(p.Permitted))
	for i, tp := range p.Permitted {
		permitted[i] = rawTokenPermissions{Token: tp.Token, Amount: tp.Amount}
	}
	return rawBatchPermit{Permitted: permitted, Nonce: p.Nonce, Deadline: p.Deadline}
}

// DecodeAction decodes one action record. Unknown selectors yield
// ErrUnknownAction; malformed argument encodings for a known selector
// yield ErrDecode.
func DecodeAction(raw []byte) (Action, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: record shorter than a selector", ErrDecode)
	}
	var sel [4]byte
	copy(sel[:], raw[:4])
	payload := raw[4:]

	switch sel {
	case selTransferFrom:
		return decodeTransferFrom(payload)
	case selBatchTransferFrom:
		return decodeBatchTransferFrom(payload)
	case selOTC:
		return decodeOTC(payload)
	case selMetaTxnOTC:
		return decodeMetaTxnOTC(payload)
	case selSelfFundedOTC:
		return decodeSelfFundedOTC(payload)
	case selSwapExactIn:
		return decodeSwapExactIn(payload)
	case selSwapExactInVIP:
		return decodeSwapExactInVIP(payload)
	case selTransferOut:
		return decodeTransferOut(payload)
	default:
		return nil, fmt.Errorf("%w: selector %x", ErrUnknownAction, sel)
	}
}

func decodeTransferFrom(payload []byte) (Action, error) {
	vals, err := argsTransferFrom.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return TransferFrom{
		Recipient: *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		Permit:    fromRawPermit(*abi.ConvertType(vals[1], new(rawPermit)).(*rawPermit)),
		Owner:     *abi.ConvertType(vals[2], new(common.Address)).(*common.Address),
		Sig:       *abi.ConvertType(vals[3], new([]byte)).(*[]byte),
	}, nil
}

func decodeBatchTransferFrom(payload []byte) (Action, error) {
	vals, err := argsBatchTransferFrom.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return BatchTransferFrom{
		Recipient:    *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		FeeRecipient: *abi.ConvertType(vals[1], new(common.Address)).(*common.Address),
		Permit:       fromRawBatchPermit(*abi.ConvertType(vals[2], new(rawBatchPermit)).(*rawBatchPermit)),
		Owner:        *abi.ConvertType(vals[3], new(common.Address)).(*common.Address),
		Sig:          *abi.ConvertType(vals[4], new([]byte)).(*[]byte),
	}, nil
}

func decodeOTC(payload []byte) (Action, error) {
	vals, err := argsOTC.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return OTC{
		Recipient:   *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		MakerPermit: fromRawPermit(*abi.ConvertType(vals[1], new(rawPermit)).(*rawPermit)),
		Maker:       *abi.ConvertType(vals[2], new(common.Address)).(*common.Address),
		MakerSig:    *abi.ConvertType(vals[3], new([]byte)).(*[]byte),
		TakerPermit: fromRawPermit(*abi.ConvertType(vals[4], new(rawPermit)).(*rawPermit)),
		Taker:       *abi.ConvertType(vals[5], new(common.Address)).(*common.Address),
		TakerSig:    *abi.ConvertType(vals[6], new([]byte)).(*[]byte),
	}, nil
}

func decodeMetaTxnOTC(payload []byte) (Action, error) {
	vals, err := argsMetaTxnOTC.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return MetaTxnOTC{
		Recipient:   *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		MakerPermit: fromRawPermit(*abi.ConvertType(vals[1], new(rawPermit)).(*rawPermit)),
		Maker:       *abi.ConvertType(vals[2], new(common.Address)).(*common.Address),
		MakerSig:    *abi.ConvertType(vals[3], new([]byte)).(*[]byte),
	}, nil
}

func decodeSelfFundedOTC(payload []byte) (Action, error) {
	vals, err := argsSelfFundedOTC.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return SelfFundedOTC{
		Recipient:      *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		MakerPermit:    fromRawPermit(*abi.ConvertType(vals[1], new(rawPermit)).(*rawPermit)),
		Maker:          *abi.ConvertType(vals[2], new(common.Address)).(*common.Address),
		MakerSig:       *abi.ConvertType(vals[3], new([]byte)).(*[]byte),
		Taker:          *abi.ConvertType(vals[4], new(common.Address)).(*common.Address),
		TakerToken:     *abi.ConvertType(vals[5], new(common.Address)).(*common.Address),
		MaxTakerAmount: *abi.ConvertType(vals[6], new(*big.Int)).(**big.Int),
	}, nil
}

func decodeSwapExactIn(payload []byte) (Action, error) {
	vals, err := argsSwapExactIn.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return SwapExactIn{
		Recipient:    *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		AmountIn:     *abi.ConvertType(vals[1], new(*big.Int)).(**big.Int),
		AmountOutMin: *abi.ConvertType(vals[2], new(*big.Int)).(**big.Int),
		Path:         *abi.ConvertType(vals[3], new([]byte)).(*[]byte),
	}, nil
}

func decodeSwapExactInVIP(payload []byte) (Action, error) {
	vals, err := argsSwapExactInVIP.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return SwapExactInVIP{
		Recipient:    *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		Permit:       fromRawPermit(*abi.ConvertType(vals[1], new(rawPermit)).(*rawPermit)),
		Owner:        *abi.ConvertType(vals[2], new(common.Address)).(*common.Address),
		Sig:          *abi.ConvertType(vals[3], new([]byte)).(*[]byte),
		AmountOutMin: *abi.ConvertType(vals[4], new(*big.Int)).(**big.Int),
		Path:         *abi.ConvertType(vals[5], new([]byte)).(*[]byte),
	}, nil
}

func decodeTransferOut(payload []byte) (Action, error) {
	vals, err := argsTransferOut.Unpack(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return TransferOut{
		Token:     *abi.ConvertType(vals[0], new(common.Address)).(*common.Address),
		Recipient: *abi.ConvertType(vals[1], new(common.Address)).(*common.Address),
		Bips:      *abi.ConvertType(vals[2], new(*big.Int)).(**big.Int),
	}, nil
}

// EncodeAction encodes an action into its wire record. Inverse of
// DecodeAction; used by clients, tests, and the HTTP surface.
func EncodeAction(action Action) ([]byte, error) {
	var (
		payload []byte
		err     error
	)
	switch a := action.(type) {
	case TransferFrom:
		payload, err = argsTransferFrom.Pack(a.Recipient, toRawPermit(a.Permit), a.Owner, a.Sig)
	case BatchTransferFrom:
		payload, err = argsBatchTransferFrom.Pack(a.Recipient, a.FeeRecipient, toRawBatchPermit(a.Permit), a.Owner, a.Sig)
	case OTC:
		payload, err = argsOTC.Pack(a.Recipient, toRawPermit(a.MakerPermit), a.Maker, a.MakerSig, toRawPermit(a.TakerPermit), a.Taker, a.TakerSig)
	case MetaTxnOTC:
		payload, err = argsMetaTxnOTC.Pack(a.Recipient, toRawPermit(a.MakerPermit), a.Maker, a.MakerSig)
	case SelfFundedOTC:
		payload, err = argsSelfFundedOTC.Pack(a.Recipient, toRawPermit(a.MakerPermit), a.Maker, a.MakerSig, a.Taker, a.TakerToken, a.MaxTakerAmount)
	case SwapExactIn:
		payload, err = argsSwapExactIn.Pack(a.Recipient, a.AmountIn, a.AmountOutMin, a.Path)
	case SwapExactInVIP:
		payload, err = argsSwapExactInVIP.Pack(a.Recipient, toRawPermit(a.Permit), a.Owner, a.Sig, a.AmountOutMin, a.Path)
	case TransferOut:
		payload, err = argsTransferOut.Pack(a.Token, a.Recipient, a.Bips)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, action)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", action, err)
	}
	sel := action.selector()
	return append(sel[:], payload...), nil
}
