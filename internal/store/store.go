// Package store persists settlement records for off-chain consumers.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Settlement is a persisted settlement record. Hashes and amounts are
// stored as their canonical hex/decimal string forms so rows are
// bit-stable for indexers regardless of driver numeric handling.
type Settlement struct {
	ID             uuid.UUID `json:"id"`
	MakerOrderHash string    `json:"maker_order_hash"`
	TakerOrderHash string    `json:"taker_order_hash"`
	FilledAmount   string    `json:"filled_amount"`
	TxRef          string    `json:"tx_ref"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the settlement persistence contract.
type Store interface {
	InsertSettlement(ctx context.Context, s Settlement) error
	ListSettlements(ctx context.Context, limit int) ([]Settlement, error)
}

// Memory is an in-memory store used by tests and by daemons running
// without a database.
type Memory struct {
	mu   sync.RWMutex
	rows []Settlement
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// InsertSettlement appends the settlement.
func (m *Memory) InsertSettlement(_ context.Context, s Settlement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, s)
	return nil
}

// ListSettlements returns up to limit settlements, newest first.
func (m *Memory) ListSettlements(_ context.Context, limit int) ([]Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Settlement, 0, limit)
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}
