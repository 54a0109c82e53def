package handlers_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/handlers"
	"github.com/halcyonlabs/settler-go/internal/logger"
	"github.com/halcyonlabs/settler-go/internal/mocks"
	"github.com/halcyonlabs/settler-go/internal/permit2"
	"github.com/halcyonlabs/settler-go/internal/proxy"
	"github.com/halcyonlabs/settler-go/internal/server"
	"github.com/halcyonlabs/settler-go/internal/settler"
	"github.com/halcyonlabs/settler-go/internal/store"
)

func init() {
	logger.InitLogger("test")
	gin.SetMode(gin.TestMode)
}

var (
	chainID     = big.NewInt(1)
	permit2Addr = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	settlerAddr = common.HexToAddress("0x5555555555555555555555555555555555555555")
	tokenA      = common.HexToAddress("0xA000000000000000000000000000000000000001")
	tokenB      = common.HexToAddress("0xB000000000000000000000000000000000000002")
)

type testServer struct {
	engine    *gin.Engine
	state     *chain.State
	service   *permit2.Service
	store     *store.Memory
	publisher *mocks.MockPublisher
	makerKey  *ecdsa.PrivateKey
	takerKey  *ecdsa.PrivateKey
	maker     common.Address
	taker     common.Address
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)

	makerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	takerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	st := chain.NewState(1_700_000_000)
	service := permit2.NewService(st, chainID, permit2Addr, settlerAddr)
	router := settler.New(st, service, nil, settlerAddr)
	registry := proxy.NewRegistry(router, 1)
	mem := store.NewMemory()
	publisher := mocks.NewMockPublisher(ctrl)

	ts := &testServer{
		engine:    server.NewRouter(handlers.NewSettlementHandler(registry, st, mem, publisher)),
		state:     st,
		service:   service,
		store:     mem,
		publisher: publisher,
		makerKey:  makerKey,
		takerKey:  takerKey,
		maker:     crypto.PubkeyToAddress(makerKey.PublicKey),
		taker:     crypto.PubkeyToAddress(takerKey.PublicKey),
	}
	st.Mint(tokenA, ts.maker, big.NewInt(10_000_000))
	st.Mint(tokenB, ts.taker, big.NewInt(10_000_000))
	return ts
}

func (ts *testServer) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

// otcAction builds and signs a complete two-signature trade.
func (ts *testServer) otcAction(t *testing.T) string {
	t.Helper()
	makerPermit := permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{Token: tokenA, Amount: big.NewInt(1000)},
		Nonce:     big.NewInt(1),
		Deadline:  big.NewInt(2_000_000_000),
	}
	takerPermit := permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{Token: tokenB, Amount: big.NewInt(500)},
		Nonce:     big.NewInt(2),
		Deadline:  big.NewInt(2_000_000_000),
	}

	makerConsideration := settler.Consideration{Token: tokenB, Amount: big.NewInt(500), Counterparty: ts.taker}
	takerConsideration := settler.Consideration{Token: tokenA, Amount: big.NewInt(1000), Counterparty: ts.maker}

	makerSig, err := permit2.SignPermitWitnessTransfer(
		ts.makerKey, ts.service.DomainSeparator(), makerPermit, settlerAddr,
		makerConsideration.Hash(), settler.ConsiderationWitnessTypeString,
	)
	require.NoError(t, err)
	takerSig, err := permit2.SignPermitWitnessTransfer(
		ts.takerKey, ts.service.DomainSeparator(), takerPermit, settlerAddr,
		takerConsideration.Hash(), settler.ConsiderationWitnessTypeString,
	)
	require.NoError(t, err)

	raw, err := settler.EncodeAction(settler.OTC{
		Recipient:   ts.taker,
		MakerPermit: makerPermit,
		Maker:       ts.maker,
		MakerSig:    makerSig,
		TakerPermit: takerPermit,
		Taker:       ts.taker,
		TakerSig:    takerSig,
	})
	require.NoError(t, err)
	return hexutil.Encode(raw)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	w := ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVersionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	w := ts.get(t, "/v1/version")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]uint64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(1), body["version"])
}

func TestExecuteEndpoint_OTC(t *testing.T) {
	ts := newTestServer(t)
	ts.publisher.EXPECT().PublishSettlement(gomock.Any(), gomock.Any()).Return(nil)

	w := ts.post(t, "/v1/execute", gin.H{
		"sender":  ts.taker.Hex(),
		"actions": []string{ts.otcAction(t)},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Settlements []handlers.SettlementResponse `json:"settlements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Settlements, 1)
	assert.Equal(t, "1000", body.Settlements[0].FilledAmount)

	// The balances moved and the record got persisted.
	assert.Equal(t, int64(500), ts.state.BalanceOf(tokenB, ts.maker).Int64())
	rows, err := ts.store.ListSettlements(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExecuteEndpoint_InvalidSender(t *testing.T) {
	ts := newTestServer(t)
	w := ts.post(t, "/v1/execute", gin.H{
		"sender":  "not-an-address",
		"actions": []string{"0x00"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteEndpoint_InvalidActionEncoding(t *testing.T) {
	ts := newTestServer(t)
	w := ts.post(t, "/v1/execute", gin.H{
		"sender":  ts.taker.Hex(),
		"actions": []string{"zzzz"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.ActionIndex)
	assert.Equal(t, 0, *body.ActionIndex)
}

func TestExecuteEndpoint_FailingActionReportsIndex(t *testing.T) {
	ts := newTestServer(t)

	// Unknown selector at index 0.
	w := ts.post(t, "/v1/execute", gin.H{
		"sender":  ts.taker.Hex(),
		"actions": []string{"0xdeadbeef"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.ActionIndex)
	assert.Equal(t, 0, *body.ActionIndex)
	assert.Contains(t, body.Error, "unknown action")
}

func TestSimulateEndpoint_NoSideEffects(t *testing.T) {
	ts := newTestServer(t)
	// No publisher expectations: simulation must not publish.

	w := ts.post(t, "/v1/simulate", gin.H{
		"sender":  ts.taker.Hex(),
		"actions": []string{ts.otcAction(t)},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Settlements []handlers.SettlementResponse `json:"settlements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Settlements, 1)

	// State rolled back, nothing persisted.
	assert.Equal(t, int64(0), ts.state.BalanceOf(tokenB, ts.maker).Int64())
	assert.Equal(t, int64(10_000_000), ts.state.BalanceOf(tokenA, ts.maker).Int64())
	rows, err := ts.store.ListSettlements(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestExecuteMetaEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.publisher.EXPECT().PublishSettlement(gomock.Any(), gomock.Any()).Return(nil)

	makerPermit := permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{Token: tokenA, Amount: big.NewInt(1000)},
		Nonce:     big.NewInt(1),
		Deadline:  big.NewInt(2_000_000_000),
	}
	makerConsideration := settler.Consideration{Token: tokenB, Amount: big.NewInt(500), Counterparty: ts.taker}
	makerSig, err := permit2.SignPermitWitnessTransfer(
		ts.makerKey, ts.service.DomainSeparator(), makerPermit, settlerAddr,
		makerConsideration.Hash(), settler.ConsiderationWitnessTypeString,
	)
	require.NoError(t, err)

	raw, err := settler.EncodeAction(settler.MetaTxnOTC{
		Recipient:   ts.taker,
		MakerPermit: makerPermit,
		Maker:       ts.maker,
		MakerSig:    makerSig,
	})
	require.NoError(t, err)
	actions := [][]byte{raw}

	takerPermit := permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{Token: tokenB, Amount: big.NewInt(500)},
		Nonce:     big.NewInt(2),
		Deadline:  big.NewInt(2_000_000_000),
	}
	takerSig, err := permit2.SignPermitWitnessTransfer(
		ts.takerKey, ts.service.DomainSeparator(), takerPermit, settlerAddr,
		settler.SequenceWitness(actions), settler.ActionsWitnessTypeString,
	)
	require.NoError(t, err)

	w := ts.post(t, "/v1/execute/meta", gin.H{
		"signer":  ts.taker.Hex(),
		"actions": []string{hexutil.Encode(raw)},
		"permit": gin.H{
			"token":    tokenB.Hex(),
			"amount":   "500",
			"nonce":    "2",
			"deadline": 2_000_000_000,
		},
		"signature": hexutil.Encode(takerSig),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, int64(500), ts.state.BalanceOf(tokenB, ts.maker).Int64())
	assert.Equal(t, int64(1000), ts.state.BalanceOf(tokenA, ts.taker).Int64())
}

func TestExecuteMetaEndpoint_BadSignatureEncoding(t *testing.T) {
	ts := newTestServer(t)
	w := ts.post(t, "/v1/execute/meta", gin.H{
		"signer":  ts.taker.Hex(),
		"actions": []string{"0x00112233"},
		"permit": gin.H{
			"token":    tokenB.Hex(),
			"amount":   "500",
			"nonce":    "2",
			"deadline": 2_000_000_000,
		},
		"signature": "not-hex",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteEndpoint_ConcurrentRequests(t *testing.T) {
	ts := newTestServer(t)
	ts.publisher.EXPECT().PublishSettlement(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	const (
		workers    = 8
		perWorker  = 10
		amountEach = 100
		totalMoved = workers * perWorker * amountEach
		makerStart = 10_000_000
	)

	// One independently signed transfer per request so any interleaving
	// is valid and the final balances are exact.
	actions := make([]string, 0, workers*perWorker)
	for i := 0; i < workers*perWorker; i++ {
		permit := permit2.PermitTransferFrom{
			Permitted: permit2.TokenPermissions{Token: tokenA, Amount: big.NewInt(amountEach)},
			Nonce:     big.NewInt(int64(1000 + i)),
			Deadline:  big.NewInt(2_000_000_000),
		}
		sig, err := permit2.SignPermitTransfer(ts.makerKey, ts.service.DomainSeparator(), permit, settlerAddr)
		require.NoError(t, err)
		raw, err := settler.EncodeAction(settler.TransferFrom{
			Recipient: ts.taker,
			Permit:    permit,
			Owner:     ts.maker,
			Sig:       sig,
		})
		require.NoError(t, err)
		actions = append(actions, hexutil.Encode(raw))
	}

	var wg sync.WaitGroup
	codes := make([]int32, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				idx := w*perWorker + i
				raw, err := json.Marshal(gin.H{
					"sender":  ts.taker.Hex(),
					"actions": []string{actions[idx]},
				})
				if err != nil {
					return
				}
				req := httptest.NewRequest(http.MethodPost, "/v1/execute", bytes.NewReader(raw))
				req.Header.Set("Content-Type", "application/json")
				rec := httptest.NewRecorder()
				ts.engine.ServeHTTP(rec, req)
				atomic.StoreInt32(&codes[idx], int32(rec.Code))
			}
		}(w)
	}
	wg.Wait()

	for idx := range codes {
		assert.Equal(t, int32(http.StatusOK), atomic.LoadInt32(&codes[idx]), "request %d", idx)
	}
	assert.Equal(t, int64(totalMoved), ts.state.BalanceOf(tokenA, ts.taker).Int64())
	assert.Equal(t, int64(makerStart-totalMoved), ts.state.BalanceOf(tokenA, ts.maker).Int64())

	rows, err := ts.store.ListSettlements(context.Background(), workers*perWorker)
	require.NoError(t, err)
	assert.Len(t, rows, workers*perWorker)
}

func TestListSettlementsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.publisher.EXPECT().PublishSettlement(gomock.Any(), gomock.Any()).Return(nil)

	w := ts.post(t, "/v1/execute", gin.H{
		"sender":  ts.taker.Hex(),
		"actions": []string{ts.otcAction(t)},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.get(t, "/v1/settlements")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Settlements []store.Settlement `json:"settlements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Settlements, 1)
}
