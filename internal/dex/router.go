package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyonlabs/settler-go/internal/chain"
)

// Pool is a two-token constant-product pool. Its reserves are the pool
// address's live balances in the environment state, so swaps participate
// in call-level atomicity like every other balance movement.
type Pool struct {
	Address common.Address
	Token0  common.Address
	Token1  common.Address
}

// swapFeeNumerator applies the 0.3% swap fee: amountIn * 997 / 1000.
const (
	swapFeeNumerator   = 997
	swapFeeDenominator = 1000
)

type pairKey struct {
	a, b common.Address
}

func keyFor(a, b common.Address) pairKey {
	if b.Cmp(a) < 0 {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Router resolves encoded paths to pools and executes multi-hop
// exact-in swaps.
type Router struct {
	pools map[pairKey]*Pool
}

var _ Adapter = (*Router)(nil)

// NewRouter creates a router with no pools; register them with AddPool.
func NewRouter() *Router {
	return &Router{pools: make(map[pairKey]*Pool)}
}

// AddPool registers a pool for its token pair, replacing any previous
// pool for that pair.
func (r *Router) AddPool(p *Pool) {
	r.pools[keyFor(p.Token0, p.Token1)] = p
}

// SwapExactIn walks the path hop by hop. The funding callback pays the
// first pool; intermediate outputs flow pool to pool; the final output
// goes to recipient. Output below amountOutMin fails the whole swap.
func (r *Router) SwapExactIn(st *chain.State, recipient common.Address, amountIn, amountOutMin *big.Int, path []byte, fund FundingCallback) (*big.Int, error) {
	hops, err := DecodePath(path)
	if err != nil {
		return nil, err
	}

	amount := new(big.Int).Set(amountIn)
	for i := 0; i < len(hops)-1; i++ {
		tokenIn, tokenOut := hops[i], hops[i+1]
		pool, ok := r.pools[keyFor(tokenIn, tokenOut)]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrNoPool, tokenIn.Hex(), tokenOut.Hex())
		}

		// Reserves are read before funding so the quote uses the
		// pre-trade price.
		reserveIn := st.BalanceOf(tokenIn, pool.Address)
		reserveOut := st.BalanceOf(tokenOut, pool.Address)

		if i == 0 {
			if err := fund(tokenIn, pool.Address, amount); err != nil {
				return nil, fmt.Errorf("swap funding failed: %w", err)
			}
		} else {
			prev := r.pools[keyFor(hops[i-1], tokenIn)]
			if err := st.Transfer(tokenIn, prev.Address, pool.Address, amount); err != nil {
				return nil, fmt.Errorf("inter-pool transfer failed: %w", err)
			}
		}

		// The callback is trusted to pay the pool, not merely to return
		// nil. Verify the delivery.
		funded := new(big.Int).Sub(st.BalanceOf(tokenIn, pool.Address), reserveIn)
		if funded.Cmp(amount) < 0 {
			return nil, ErrUnderfunded
		}

		amount = quoteExactIn(amount, reserveIn, reserveOut)
		target := recipient
		if i < len(hops)-2 {
			target = pool.Address // held for the next hop
		}
		if target != pool.Address {
			if err := st.Transfer(tokenOut, pool.Address, target, amount); err != nil {
				return nil, fmt.Errorf("swap output transfer failed: %w", err)
			}
		}
	}

	if amount.Cmp(amountOutMin) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrInsufficientOutput, amount, amountOutMin)
	}
	return amount, nil
}

// quoteExactIn is the x*y=k exact-in quote with the swap fee applied:
// out = reserveOut * in*997 / (reserveIn*1000 + in*997).
func quoteExactIn(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(swapFeeNumerator))
	numerator := new(big.Int).Mul(reserveOut, inWithFee)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(swapFeeDenominator))
	denominator.Add(denominator, inWithFee)
	if denominator.Sign() == 0 {
		return new(big.Int)
	}
	return numerator.Div(numerator, denominator)
}
