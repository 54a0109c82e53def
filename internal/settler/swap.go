package settler

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyonlabs/settler-go/internal/dex"
	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// fundingAuthorization is the explicit capability handed to a swap
// adapter: it authorizes exactly one funding payment during the swap.
// The adapter never sees the permit or the router's balance directly.
type fundingAuthorization struct {
	used bool
	pay  func(token, pool common.Address, amount *big.Int) error
}

func (f *fundingAuthorization) callback() dex.FundingCallback {
	return func(token, pool common.Address, amount *big.Int) error {
		if f.used {
			return ErrFundingReused
		}
		f.used = true
		return f.pay(token, pool, amount)
	}
}

// swapExactIn executes a contract-funded swap: the input comes out of the
// router's own live balance.
func (s *Settler) swapExactIn(a SwapExactIn) error {
	if s.swapper == nil {
		return ErrNoSwapAdapter
	}
	auth := &fundingAuthorization{
		pay: func(token, pool common.Address, amount *big.Int) error {
			return s.state.Transfer(token, s.address, pool, amount)
		},
	}
	_, err := s.swapper.SwapExactIn(s.state, a.Recipient, a.AmountIn, a.AmountOutMin, a.Path, auth.callback())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalCall, err)
	}
	return nil
}

// swapExactInVIP executes a permit-funded swap: the funding callback
// consumes the signer's permit paying the pool directly, skipping the
// intermediate custody hop. The adapter holds a single-use authorization;
// callers must not pair this action with a separate explicit transfer of
// the same permit (documented precondition, not locally enforced).
func (s *Settler) swapExactInVIP(a SwapExactInVIP) error {
	if s.swapper == nil {
		return ErrNoSwapAdapter
	}
	auth := &fundingAuthorization{
		pay: func(token, pool common.Address, amount *big.Int) error {
			if token != a.Permit.Permitted.Token {
				return fmt.Errorf("pool requested %s but permit covers %s", token.Hex(), a.Permit.Permitted.Token.Hex())
			}
			details := permit2.SignatureTransferDetails{To: pool, RequestedAmount: amount}
			return s.transfers.PermitTransferFrom(a.Permit, details, a.Owner, a.Sig)
		},
	}
	amountIn := a.Permit.Permitted.Amount
	_, err := s.swapper.SwapExactIn(s.state, a.Recipient, amountIn, a.AmountOutMin, a.Path, auth.callback())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalCall, err)
	}
	return nil
}

// transferOut pays out basis points of the router's live balance.
func (s *Settler) transferOut(a TransferOut) error {
	if a.Bips == nil || a.Bips.Cmp(big.NewInt(10000)) > 0 {
		return ErrInvalidPayout
	}
	balance := s.state.BalanceOf(a.Token, s.address)
	amount := mulDiv(balance, a.Bips, big.NewInt(10000))
	if err := s.state.Transfer(a.Token, s.address, a.Recipient, amount); err != nil {
		return fmt.Errorf("transfer out failed: %w", err)
	}
	return nil
}
