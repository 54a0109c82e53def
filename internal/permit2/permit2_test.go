package permit2_test

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/logger"
	"github.com/halcyonlabs/settler-go/internal/permit2"
)

func init() {
	logger.InitLogger("test")
}

var (
	chainID     = big.NewInt(1)
	serviceAddr = common.HexToAddress("0x000000000022D473030F116dDEE9F6B43aC78BA3")
	spender     = common.HexToAddress("0x5555555555555555555555555555555555555555")
	recipient   = common.HexToAddress("0x9999999999999999999999999999999999999999")
	tokenA      = common.HexToAddress("0xA000000000000000000000000000000000000001")
	tokenB      = common.HexToAddress("0xB000000000000000000000000000000000000002")
)

type fixture struct {
	state   *chain.State
	service *permit2.Service
	key     *ecdsa.PrivateKey
	owner   common.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	st := chain.NewState(1_700_000_000)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	st.Mint(tokenA, owner, big.NewInt(1_000_000))
	st.Mint(tokenB, owner, big.NewInt(1_000_000))

	return &fixture{
		state:   st,
		service: permit2.NewService(st, chainID, serviceAddr, spender),
		key:     key,
		owner:   owner,
	}
}

func singlePermit(nonce int64, amount int64) permit2.PermitTransferFrom {
	return permit2.PermitTransferFrom{
		Permitted: permit2.TokenPermissions{Token: tokenA, Amount: big.NewInt(amount)},
		Nonce:     big.NewInt(nonce),
		Deadline:  big.NewInt(2_000_000_000),
	}
}

func TestPermitTransferFrom(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 500)

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(500)}
	require.NoError(t, f.service.PermitTransferFrom(permit, details, f.owner, sig))

	assert.Equal(t, int64(500), f.state.BalanceOf(tokenA, recipient).Int64())
	assert.Equal(t, int64(999_500), f.state.BalanceOf(tokenA, f.owner).Int64())
	assert.True(t, f.state.NonceUsed(f.owner, common.BigToHash(big.NewInt(1))))
}

func TestPermitTransferFrom_PartialRequest(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 500)

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	// Requesting less than permitted is allowed; the remainder is
	// forfeited with the nonce.
	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(200)}
	require.NoError(t, f.service.PermitTransferFrom(permit, details, f.owner, sig))
	assert.Equal(t, int64(200), f.state.BalanceOf(tokenA, recipient).Int64())
}

func TestPermitTransferFrom_RequestExceedsPermitted(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 500)

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(501)}
	err = f.service.PermitTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrInvalidAmount)
	assert.Equal(t, int64(0), f.state.BalanceOf(tokenA, recipient).Int64())
}

func TestPermitTransferFrom_NonceReuse(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 100)

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}
	require.NoError(t, f.service.PermitTransferFrom(permit, details, f.owner, sig))

	err = f.service.PermitTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrNonceUsed)
	assert.Equal(t, int64(100), f.state.BalanceOf(tokenA, recipient).Int64())
}

func TestPermitTransferFrom_Expired(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 100)
	permit.Deadline = big.NewInt(1_600_000_000) // before the state timestamp

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}
	err = f.service.PermitTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrExpired)

	// An expired permit never consumes its nonce.
	assert.False(t, f.state.NonceUsed(f.owner, common.BigToHash(big.NewInt(1))))
}

func TestPermitTransferFrom_DeadlineBeyondUint64(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 100)
	// Deadlines are uint256; 2^64 is far in the future, not expired.
	permit.Deadline = new(big.Int).Lsh(big.NewInt(1), 64)

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}
	require.NoError(t, f.service.PermitTransferFrom(permit, details, f.owner, sig))
	assert.Equal(t, int64(100), f.state.BalanceOf(tokenA, recipient).Int64())
}

func TestPermitTransferFrom_ZeroDeadlineExpired(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 100)
	permit.Deadline = big.NewInt(0)

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}
	err = f.service.PermitTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrExpired)
	assert.False(t, f.state.NonceUsed(f.owner, common.BigToHash(big.NewInt(1))))
}

func TestPermitTransferFrom_WrongSigner(t *testing.T) {
	f := newFixture(t)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	permit := singlePermit(1, 100)
	sig, err := permit2.SignPermitTransfer(otherKey, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}
	err = f.service.PermitTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrSignatureInvalid)
}

func TestPermitTransferFrom_TamperedPermit(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 100)

	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	// Bump the amount after signing; recovery lands on a different
	// address.
	permit.Permitted.Amount = big.NewInt(100_000)
	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}
	err = f.service.PermitTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrSignatureInvalid)
}

func TestPermitTransferFrom_WrongSpender(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 100)

	// Signed for a different spender than the service enforces.
	otherSpender := common.HexToAddress("0x6666666666666666666666666666666666666666")
	sig, err := permit2.SignPermitTransfer(f.key, f.service.DomainSeparator(), permit, otherSpender)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}
	err = f.service.PermitTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrSignatureInvalid)
}

func TestPermitTransferFrom_MalformedSignature(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 100)
	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(100)}

	err := f.service.PermitTransferFrom(permit, details, f.owner, []byte{0x01, 0x02})
	assert.ErrorIs(t, err, permit2.ErrSignatureInvalid)
}

func TestPermitWitnessTransferFrom(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 300)

	witness := crypto.Keccak256Hash([]byte("order"))
	const witnessType = "bytes32 witness)TokenPermissions(address token,uint256 amount)"

	sig, err := permit2.SignPermitWitnessTransfer(f.key, f.service.DomainSeparator(), permit, spender, witness, witnessType)
	require.NoError(t, err)

	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(300)}
	require.NoError(t, f.service.PermitWitnessTransferFrom(permit, details, f.owner, witness, witnessType, sig))
	assert.Equal(t, int64(300), f.state.BalanceOf(tokenA, recipient).Int64())
}

func TestPermitWitnessTransferFrom_WitnessMismatch(t *testing.T) {
	f := newFixture(t)
	permit := singlePermit(1, 300)

	witness := crypto.Keccak256Hash([]byte("order"))
	const witnessType = "bytes32 witness)TokenPermissions(address token,uint256 amount)"

	sig, err := permit2.SignPermitWitnessTransfer(f.key, f.service.DomainSeparator(), permit, spender, witness, witnessType)
	require.NoError(t, err)

	other := crypto.Keccak256Hash([]byte("different order"))
	details := permit2.SignatureTransferDetails{To: recipient, RequestedAmount: big.NewInt(300)}
	err = f.service.PermitWitnessTransferFrom(permit, details, f.owner, other, witnessType, sig)
	assert.ErrorIs(t, err, permit2.ErrSignatureInvalid)
}

func TestPermitBatchTransferFrom(t *testing.T) {
	f := newFixture(t)
	permit := permit2.PermitBatchTransferFrom{
		Permitted: []permit2.TokenPermissions{
			{Token: tokenA, Amount: big.NewInt(400)},
			{Token: tokenB, Amount: big.NewInt(50)},
		},
		Nonce:    big.NewInt(9),
		Deadline: big.NewInt(2_000_000_000),
	}

	sig, err := permit2.SignPermitBatchTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	feeRecipient := common.HexToAddress("0x7777777777777777777777777777777777777777")
	details := []permit2.SignatureTransferDetails{
		{To: recipient, RequestedAmount: big.NewInt(400)},
		{To: feeRecipient, RequestedAmount: big.NewInt(50)},
	}
	require.NoError(t, f.service.PermitBatchTransferFrom(permit, details, f.owner, sig))

	assert.Equal(t, int64(400), f.state.BalanceOf(tokenA, recipient).Int64())
	assert.Equal(t, int64(50), f.state.BalanceOf(tokenB, feeRecipient).Int64())
}

func TestPermitBatchTransferFrom_LengthMismatch(t *testing.T) {
	f := newFixture(t)
	permit := permit2.PermitBatchTransferFrom{
		Permitted: []permit2.TokenPermissions{
			{Token: tokenA, Amount: big.NewInt(400)},
			{Token: tokenB, Amount: big.NewInt(50)},
		},
		Nonce:    big.NewInt(9),
		Deadline: big.NewInt(2_000_000_000),
	}

	sig, err := permit2.SignPermitBatchTransfer(f.key, f.service.DomainSeparator(), permit, spender)
	require.NoError(t, err)

	details := []permit2.SignatureTransferDetails{
		{To: recipient, RequestedAmount: big.NewInt(400)},
	}
	err = f.service.PermitBatchTransferFrom(permit, details, f.owner, sig)
	assert.ErrorIs(t, err, permit2.ErrLengthMismatch)
}

func TestPermitBatchWitnessTransferFrom(t *testing.T) {
	f := newFixture(t)
	permit := permit2.PermitBatchTransferFrom{
		Permitted: []permit2.TokenPermissions{
			{Token: tokenA, Amount: big.NewInt(400)},
		},
		Nonce:    big.NewInt(9),
		Deadline: big.NewInt(2_000_000_000),
	}

	witness := crypto.Keccak256Hash([]byte("batch order"))
	const witnessType = "bytes32 witness)TokenPermissions(address token,uint256 amount)"

	sig, err := permit2.SignPermitBatchWitnessTransfer(f.key, f.service.DomainSeparator(), permit, spender, witness, witnessType)
	require.NoError(t, err)

	details := []permit2.SignatureTransferDetails{
		{To: recipient, RequestedAmount: big.NewInt(400)},
	}
	require.NoError(t, f.service.PermitBatchWitnessTransferFrom(permit, details, f.owner, witness, witnessType, sig))
	assert.Equal(t, int64(400), f.state.BalanceOf(tokenA, recipient).Int64())
}

func TestDomainSeparator_DistinctPerDeployment(t *testing.T) {
	a := permit2.DomainSeparator(big.NewInt(1), serviceAddr)
	b := permit2.DomainSeparator(big.NewInt(10), serviceAddr)
	c := permit2.DomainSeparator(big.NewInt(1), spender)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, permit2.DomainSeparator(big.NewInt(1), serviceAddr))
}
