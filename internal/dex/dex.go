// Package dex defines the swap-adapter contract the settlement router
// consumes, plus a constant-product pool implementation holding its
// reserves in the environment state.
package dex

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyonlabs/settler-go/internal/chain"
)

var (
	// ErrInsufficientOutput is returned when a swap's output falls below
	// the caller's minimum.
	ErrInsufficientOutput = errors.New("insufficient output amount")

	// ErrBadPath is returned when an encoded path is not a sequence of at
	// least two 20-byte token addresses.
	ErrBadPath = errors.New("malformed swap path")

	// ErrNoPool is returned when the path references a token pair with no
	// registered pool.
	ErrNoPool = errors.New("no pool for token pair")

	// ErrUnderfunded is returned when the funding callback did not
	// deliver the full input amount to the pool.
	ErrUnderfunded = errors.New("swap input not delivered to pool")
)

// FundingCallback pays amount of token to the pool address mid-swap. The
// router hands adapters a single-use authorization; adapters must invoke
// it at most once per swap.
type FundingCallback func(token, pool common.Address, amount *big.Int) error

// Adapter is the swap-exact-in contract consumed by the router's swap
// actions. Implementations pull the input via fund before releasing the
// output and must leave state untouched on failure (the router reverts
// the enclosing call regardless).
type Adapter interface {
	SwapExactIn(st *chain.State, recipient common.Address, amountIn, amountOutMin *big.Int, path []byte, fund FundingCallback) (*big.Int, error)
}

// DecodePath splits an encoded path into its token hops. The wire format
// is 20-byte token addresses concatenated, two minimum.
func DecodePath(path []byte) ([]common.Address, error) {
	if len(path) < 40 || len(path)%20 != 0 {
		return nil, ErrBadPath
	}
	hops := make([]common.Address, len(path)/20)
	for i := range hops {
		hops[i] = common.BytesToAddress(path[i*20 : (i+1)*20])
	}
	return hops, nil
}
