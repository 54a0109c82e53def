// Package handlers exposes the settlement router over HTTP for relayers
// and operational tooling.
package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/events"
	"github.com/halcyonlabs/settler-go/internal/logger"
	"github.com/halcyonlabs/settler-go/internal/permit2"
	"github.com/halcyonlabs/settler-go/internal/proxy"
	"github.com/halcyonlabs/settler-go/internal/settler"
	"github.com/halcyonlabs/settler-go/internal/store"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error       string `json:"error"`
	ActionIndex *int   `json:"action_index,omitempty"`
}

// SettlementHandler handles settlement execution and queries.
//
// The environment state totally orders transactions and is not safe for
// concurrent use; mu is that total order. Every path that touches the
// state — execution, forwarded execution, and the simulate
// snapshot/revert pair — runs under it.
type SettlementHandler struct {
	registry  *proxy.Registry
	state     *chain.State
	store     store.Store
	publisher events.Publisher
	logger    *zap.Logger

	mu sync.Mutex
}

// NewSettlementHandler creates a new SettlementHandler instance
func NewSettlementHandler(registry *proxy.Registry, state *chain.State, st store.Store, publisher events.Publisher) *SettlementHandler {
	return &SettlementHandler{
		registry:  registry,
		state:     state,
		store:     st,
		publisher: publisher,
		logger:    logger.Log,
	}
}

// ExecuteRequest is a directly submitted action sequence.
type ExecuteRequest struct {
	Sender  string   `json:"sender" binding:"required"`
	Actions []string `json:"actions" binding:"required"`
}

// PermitRequest is the JSON form of a single-token permit.
type PermitRequest struct {
	Token    string `json:"token" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Nonce    string `json:"nonce" binding:"required"`
	Deadline uint64 `json:"deadline"`
}

// MetaExecuteRequest is a relayed action sequence with its enclosing
// signed permit.
type MetaExecuteRequest struct {
	Signer    string        `json:"signer" binding:"required"`
	Actions   []string      `json:"actions" binding:"required"`
	Permit    PermitRequest `json:"permit" binding:"required"`
	Signature string        `json:"signature" binding:"required"`
}

// SettlementResponse is one settlement record produced by a call.
type SettlementResponse struct {
	MakerOrderHash string `json:"maker_order_hash"`
	TakerOrderHash string `json:"taker_order_hash"`
	FilledAmount   string `json:"filled_amount"`
}

// Execute godoc: executes an action sequence and persists its settlement
// records.
func (h *SettlementHandler) Execute(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	sender, actions, ok := h.parseSequence(c, req.Sender, req.Actions)
	if !ok {
		return
	}

	h.mu.Lock()
	records, err := h.registry.Implementation().Execute(c.Request.Context(), sender, actions)
	h.mu.Unlock()
	if err != nil {
		h.respondExecutionError(c, err)
		return
	}

	h.finishExecution(c, records)
}

// ExecuteMeta executes a relayed action sequence on behalf of its signer.
func (h *SettlementHandler) ExecuteMeta(c *gin.Context) {
	var req MetaExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	signer, actions, ok := h.parseSequence(c, req.Signer, req.Actions)
	if !ok {
		return
	}

	permit, err := parsePermit(req.Permit)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid signature encoding"})
		return
	}

	h.mu.Lock()
	records, err := h.registry.Implementation().ExecuteMetaTxn(c.Request.Context(), actions, signer, permit, sig)
	h.mu.Unlock()
	if err != nil {
		h.respondExecutionError(c, err)
		return
	}

	h.finishExecution(c, records)
}

// Simulate runs an action sequence against a throwaway snapshot: state
// changes are reverted and nothing is persisted or published.
func (h *SettlementHandler) Simulate(c *gin.Context) {
	var req ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	sender, actions, ok := h.parseSequence(c, req.Sender, req.Actions)
	if !ok {
		return
	}

	h.mu.Lock()
	snapshot := h.state.Snapshot()
	records, err := h.registry.Implementation().Execute(c.Request.Context(), sender, actions)
	h.state.RevertToSnapshot(snapshot)
	h.mu.Unlock()

	if err != nil {
		h.respondExecutionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlements": toResponses(records)})
}

// ListSettlements returns recent persisted settlement records.
func (h *SettlementHandler) ListSettlements(c *gin.Context) {
	settlements, err := h.store.ListSettlements(c.Request.Context(), 100)
	if err != nil {
		h.logger.Error("Failed to list settlements", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list settlements"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"settlements": settlements})
}

// Version returns the active router implementation version.
func (h *SettlementHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.registry.Version()})
}

func (h *SettlementHandler) parseSequence(c *gin.Context, sender string, hexActions []string) (common.Address, [][]byte, bool) {
	if !common.IsHexAddress(sender) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid sender address"})
		return common.Address{}, nil, false
	}
	actions := make([][]byte, len(hexActions))
	for i, encoded := range hexActions {
		raw, err := hexutil.Decode(encoded)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid action encoding", ActionIndex: &i})
			return common.Address{}, nil, false
		}
		actions[i] = raw
	}
	return common.HexToAddress(sender), actions, true
}

func (h *SettlementHandler) respondExecutionError(c *gin.Context, err error) {
	var actionErr *settler.ActionError
	if errors.As(err, &actionErr) {
		h.logger.Warn("Execution failed",
			zap.Int("action_index", actionErr.Index),
			zap.Error(actionErr.Err),
		)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:       actionErr.Err.Error(),
			ActionIndex: &actionErr.Index,
		})
		return
	}
	h.logger.Error("Execution failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func (h *SettlementHandler) finishExecution(c *gin.Context, records []chain.SettlementRecord) {
	ctx := c.Request.Context()
	for _, rec := range records {
		row := store.Settlement{
			ID:             uuid.New(),
			MakerOrderHash: rec.MakerOrderHash.Hex(),
			TakerOrderHash: rec.TakerOrderHash.Hex(),
			FilledAmount:   rec.FilledAmount.String(),
			CreatedAt:      time.Now().UTC(),
		}
		if err := h.store.InsertSettlement(ctx, row); err != nil {
			h.logger.Error("Failed to persist settlement", zap.Error(err))
		}
		if err := h.publisher.PublishSettlement(ctx, row); err != nil {
			h.logger.Error("Failed to publish settlement", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"settlements": toResponses(records)})
}

func toResponses(records []chain.SettlementRecord) []SettlementResponse {
	out := make([]SettlementResponse, len(records))
	for i, rec := range records {
		out[i] = SettlementResponse{
			MakerOrderHash: rec.MakerOrderHash.Hex(),
			TakerOrderHash: rec.TakerOrderHash.Hex(),
			FilledAmount:   rec.FilledAmount.String(),
		}
	}
	return out
}

func parsePermit(req PermitRequest) (permit2.PermitTransferFrom, error) {
	if !common.IsHexAddress(req.Token) {
		return permit2.PermitTransferFrom{}, errors.New("invalid permit token address")
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		return permit2.PermitTransferFrom{}, errors.New("invalid permit amount")
	}
	nonce, ok := new(big.Int).SetString(req.Nonce, 10)
	if !ok {
		return permit2.PermitTransferFrom{}, errors.New("invalid permit nonce")
	}
	return permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{
			Token:  common.HexToAddress(req.Token),
			Amount: amount,
		},
		Nonce:    nonce,
		Deadline: new(big.Int).SetUint64(req.Deadline),
	}, nil
}
