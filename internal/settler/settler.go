// Package settler implements the settlement router: a dispatcher that
// executes an ordered sequence of opaque actions — signed transfers, OTC
// order settlement, DEX swaps, fee payouts — atomically against the
// environment state, funded exclusively by single-use signed permits or
// the router's own transient balance, never by persistent allowances.
package settler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/dex"
	"github.com/halcyonlabs/settler-go/internal/logger"
	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// Settler is the settlement router. It holds no state of its own beyond
// its custody address; everything durable lives in the environment state
// and the external transfer service.
type Settler struct {
	state     *chain.State
	transfers permit2.SignatureTransfer
	swapper   dex.Adapter
	address   common.Address
	logger    *zap.Logger
}

// New creates a settlement router. swapper may be nil when swap actions
// are not needed; executing one then fails the call.
func New(state *chain.State, transfers permit2.SignatureTransfer, swapper dex.Adapter, address common.Address) *Settler {
	return &Settler{
		state:     state,
		transfers: transfers,
		swapper:   swapper,
		address:   address,
		logger:    logger.Log,
	}
}

// Address returns the router's custody address.
func (s *Settler) Address() common.Address {
	return s.address
}

// Execute runs an action sequence submitted directly by sender. The
// sequence is all-or-nothing: any failure reverts every effect of the
// call and reports the failing action's index. On success it returns the
// settlement records the call appended.
func (s *Settler) Execute(ctx context.Context, sender common.Address, actions [][]byte) ([]chain.SettlementRecord, error) {
	return s.run(ctx, directContext(sender), actions)
}

// ExecuteMetaTxn runs an action sequence submitted by a relayer on behalf
// of signer. The enclosing permit's signature commits to the exact byte
// encoding of the sequence; a single mutated byte in any action
// invalidates it at the transfer service.
func (s *Settler) ExecuteMetaTxn(ctx context.Context, actions [][]byte, signer common.Address, permit permit2.PermitTransferFrom, sig []byte) ([]chain.SettlementRecord, error) {
	return s.run(ctx, forwardedContext(signer, actions, &permit, sig), actions)
}

func (s *Settler) run(ctx context.Context, ec *ExecutionContext, actions [][]byte) ([]chain.SettlementRecord, error) {
	snapshot := s.state.Snapshot()
	recordsBefore := len(s.state.Records())

	for i, raw := range actions {
		if err := ctx.Err(); err != nil {
			s.state.RevertToSnapshot(snapshot)
			return nil, err
		}

		action, err := DecodeAction(raw)
		if err != nil {
			s.state.RevertToSnapshot(snapshot)
			var sel [4]byte
			if len(raw) >= 4 {
				copy(sel[:], raw[:4])
			}
			return nil, &ActionError{Index: i, Selector: sel, Err: err}
		}

		if err := s.dispatch(ec, action); err != nil {
			s.state.RevertToSnapshot(snapshot)
			s.logger.Warn("action sequence reverted",
				zap.Int("action_index", i),
				zap.String("action", actionName(action)),
				zap.Error(err),
			)
			return nil, &ActionError{Index: i, Selector: action.selector(), Err: err}
		}
	}

	records := s.state.Records()[recordsBefore:]
	s.logger.Info("action sequence executed",
		zap.Int("actions", len(actions)),
		zap.Int("settlements", len(records)),
		zap.Bool("forwarded", ec.IsForwarded),
		zap.String("payer", ec.Payer.Hex()),
	)
	return records, nil
}

// dispatch matches the decoded action exhaustively. Adding an action kind
// means extending the sum type in actions.go and this switch together.
func (s *Settler) dispatch(ec *ExecutionContext, action Action) error {
	switch a := action.(type) {
	case TransferFrom:
		return s.transferFrom(a)
	case BatchTransferFrom:
		return s.batchTransferFrom(a)
	case OTC:
		return s.settleOTC(a)
	case MetaTxnOTC:
		return s.settleMetaTxnOTC(ec, a)
	case SelfFundedOTC:
		return s.settleSelfFundedOTC(ec, a)
	case SwapExactIn:
		return s.swapExactIn(a)
	case SwapExactInVIP:
		return s.swapExactInVIP(a)
	case TransferOut:
		return s.transferOut(a)
	default:
		return ErrUnknownAction
	}
}

func actionName(action Action) string {
	switch action.(type) {
	case TransferFrom:
		return "TRANSFER_FROM"
	case BatchTransferFrom:
		return "BATCH_TRANSFER_FROM"
	case OTC:
		return "SETTLER_OTC"
	case MetaTxnOTC:
		return "METATXN_SETTLER_OTC"
	case SelfFundedOTC:
		return "SETTLER_OTC_SELF_FUNDED"
	case SwapExactIn:
		return "UNISWAP_SWAP_EXACT_IN"
	case SwapExactInVIP:
		return "UNISWAP_SWAP_EXACT_IN_VIP"
	case TransferOut:
		return "TRANSFER_OUT"
	default:
		return "UNKNOWN"
	}
}
