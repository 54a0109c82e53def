// Package proxy is the upgrade surface for the settlement router: a
// versioned registry holding the active implementation with a
// monotonically increasing version enforced at upgrade time.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/logger"
	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// ErrStaleVersion is returned when an upgrade does not strictly increase
// the version counter.
var ErrStaleVersion = errors.New("upgrade version must increase")

// Implementation is the router contract the registry fronts.
type Implementation interface {
	Execute(ctx context.Context, sender common.Address, actions [][]byte) ([]chain.SettlementRecord, error)
	ExecuteMetaTxn(ctx context.Context, actions [][]byte, signer common.Address, permit permit2.PermitTransferFrom, sig []byte) ([]chain.SettlementRecord, error)
}

// Registry holds the active implementation behind an explicit version
// field. The version only moves forward; there is no rollback slot.
type Registry struct {
	mu      sync.RWMutex
	impl    Implementation
	version uint64
	logger  *zap.Logger
}

// NewRegistry creates a registry at the given initial version.
func NewRegistry(impl Implementation, version uint64) *Registry {
	return &Registry{impl: impl, version: version, logger: logger.Log}
}

// Implementation returns the active implementation.
func (r *Registry) Implementation() Implementation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.impl
}

// Version returns the current version counter.
func (r *Registry) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Upgrade swaps the implementation. The new version must be strictly
// greater than the current one.
func (r *Registry) Upgrade(impl Implementation, version uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if version <= r.version {
		return fmt.Errorf("%w: current %d, proposed %d", ErrStaleVersion, r.version, version)
	}
	r.impl = impl
	r.version = version
	r.logger.Info("router implementation upgraded", zap.Uint64("version", version))
	return nil
}

// UpgradeAndCall swaps the implementation and immediately invokes call
// against it, failing the upgrade if the call fails.
func (r *Registry) UpgradeAndCall(impl Implementation, version uint64, call func(Implementation) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if version <= r.version {
		return fmt.Errorf("%w: current %d, proposed %d", ErrStaleVersion, r.version, version)
	}
	if err := call(impl); err != nil {
		return fmt.Errorf("upgrade call failed: %w", err)
	}
	r.impl = impl
	r.version = version
	r.logger.Info("router implementation upgraded with call", zap.Uint64("version", version))
	return nil
}
