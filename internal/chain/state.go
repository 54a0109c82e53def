// Package chain models the host execution environment the settlement
// router runs inside: token balances, signature-transfer nonces, block
// time, and the settlement record log. All mutations are journaled so a
// failed call can be unwound to its entry snapshot, the same guarantee
// the router gets from native transaction atomicity on chain.
package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SettlementRecord is the canonical per-settlement log entry. It must be
// bit-stable: off-chain indexers key on these exact fields.
type SettlementRecord struct {
	MakerOrderHash common.Hash
	TakerOrderHash common.Hash
	FilledAmount   *big.Int
}

// State holds the environment's mutable state for the duration of a call
// sequence. It is not safe for concurrent use; the host environment
// totally orders transactions, so callers serialize access.
type State struct {
	balances  map[common.Address]map[common.Address]*big.Int // token -> holder -> balance
	nonces    map[common.Address]map[[32]byte]bool           // owner -> nonce -> used
	records   []SettlementRecord
	timestamp uint64

	journal []journalEntry
}

type journalEntry interface {
	revert(st *State)
}

type balanceChange struct {
	token, holder common.Address
	prev          *big.Int // nil when the holder had no entry
}

func (c balanceChange) revert(st *State) {
	if c.prev == nil {
		delete(st.balances[c.token], c.holder)
		return
	}
	st.balances[c.token][c.holder] = c.prev
}

type nonceChange struct {
	owner common.Address
	nonce [32]byte
}

func (c nonceChange) revert(st *State) {
	delete(st.nonces[c.owner], c.nonce)
}

type recordAppend struct{}

func (recordAppend) revert(st *State) {
	st.records = st.records[:len(st.records)-1]
}

// NewState creates an empty environment state at the given block time.
func NewState(timestamp uint64) *State {
	return &State{
		balances:  make(map[common.Address]map[common.Address]*big.Int),
		nonces:    make(map[common.Address]map[[32]byte]bool),
		timestamp: timestamp,
	}
}

// Timestamp returns the environment's current block timestamp.
func (st *State) Timestamp() uint64 {
	return st.timestamp
}

// SetTimestamp advances the environment's block timestamp. Not journaled:
// time never rewinds inside a call.
func (st *State) SetTimestamp(ts uint64) {
	st.timestamp = ts
}

// BalanceOf returns the holder's balance of token. The returned value is
// a copy; mutating it does not touch state.
func (st *State) BalanceOf(token, holder common.Address) *big.Int {
	if bals, ok := st.balances[token]; ok {
		if bal, ok := bals[holder]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// Mint credits amount of token to the holder. Used to seed balances when
// constructing test fixtures and daemon environments.
func (st *State) Mint(token, holder common.Address, amount *big.Int) {
	st.setBalance(token, holder, new(big.Int).Add(st.BalanceOf(token, holder), amount))
}

// Transfer moves amount of token from one holder to another. The transfer
// is journaled and fails without side effects when the sender's balance
// is insufficient.
func (st *State) Transfer(token, from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("transfer amount must not be negative")
	}
	fromBal := st.BalanceOf(token, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: have %s, need %s", fromBal, amount)
	}
	st.setBalance(token, from, new(big.Int).Sub(fromBal, amount))
	st.setBalance(token, to, new(big.Int).Add(st.BalanceOf(token, to), amount))
	return nil
}

// UseNonce consumes a signature-transfer nonce for the owner. Returns
// false when the nonce has already been consumed. Consumption is
// journaled, so reverting the enclosing call frees the nonce again.
func (st *State) UseNonce(owner common.Address, nonce [32]byte) bool {
	used, ok := st.nonces[owner]
	if !ok {
		used = make(map[[32]byte]bool)
		st.nonces[owner] = used
	}
	if used[nonce] {
		return false
	}
	used[nonce] = true
	st.journal = append(st.journal, nonceChange{owner: owner, nonce: nonce})
	return true
}

// NonceUsed reports whether the owner's nonce has been consumed.
func (st *State) NonceUsed(owner common.Address, nonce [32]byte) bool {
	return st.nonces[owner][nonce]
}

// AppendRecord appends a settlement record to the log. Reverting the
// enclosing snapshot removes it.
func (st *State) AppendRecord(rec SettlementRecord) {
	st.records = append(st.records, rec)
	st.journal = append(st.journal, recordAppend{})
}

// Records returns the settlement log.
func (st *State) Records() []SettlementRecord {
	out := make([]SettlementRecord, len(st.records))
	copy(out, st.records)
	return out
}

// Snapshot returns an identifier for the current state that can be
// reverted to.
func (st *State) Snapshot() int {
	return len(st.journal)
}

// RevertToSnapshot unwinds every change made since the given snapshot.
func (st *State) RevertToSnapshot(id int) {
	if id < 0 || id > len(st.journal) {
		panic(fmt.Sprintf("invalid snapshot id %d (journal length %d)", id, len(st.journal)))
	}
	for i := len(st.journal) - 1; i >= id; i-- {
		st.journal[i].revert(st)
	}
	st.journal = st.journal[:id]
}

func (st *State) setBalance(token, holder common.Address, amount *big.Int) {
	bals, ok := st.balances[token]
	if !ok {
		bals = make(map[common.Address]*big.Int)
		st.balances[token] = bals
	}
	prev, had := bals[holder]
	change := balanceChange{token: token, holder: holder}
	if had {
		change.prev = prev
	}
	st.journal = append(st.journal, change)
	bals[holder] = amount
}
