package settler

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/halcyonlabs/settler-go/internal/chain"
	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// settleOTC settles a two-signature trade. Each side signed a witnessed
// permit whose witness is the consideration that side must receive,
// derived from the counterparty's permit. Dispatch order: the taker's
// permit pays the maker first, then the maker's permit pays the
// recipient. Either failure reverts the whole call.
func (s *Settler) settleOTC(a OTC) error {
	makerConsideration := Consideration{
		Token:        a.TakerPermit.Permitted.Token,
		Amount:       a.TakerPermit.Permitted.Amount,
		Counterparty: a.Taker,
	}
	takerConsideration := Consideration{
		Token:        a.MakerPermit.Permitted.Token,
		Amount:       a.MakerPermit.Permitted.Amount,
		Counterparty: a.Maker,
	}
	makerWitness := makerConsideration.Hash()
	takerWitness := takerConsideration.Hash()

	takerDetails := permitToTransferDetails(a.TakerPermit, a.Maker)
	if err := s.transfers.PermitWitnessTransferFrom(a.TakerPermit, takerDetails, a.Taker, takerWitness, ConsiderationWitnessTypeString, a.TakerSig); err != nil {
		return fmt.Errorf("taker leg: %w", err)
	}

	makerDetails := permitToTransferDetails(a.MakerPermit, a.Recipient)
	if err := s.transfers.PermitWitnessTransferFrom(a.MakerPermit, makerDetails, a.Maker, makerWitness, ConsiderationWitnessTypeString, a.MakerSig); err != nil {
		return fmt.Errorf("maker leg: %w", err)
	}

	s.emitSettlement(makerWitness, takerWitness, a.MakerPermit.Permitted.Amount)
	return nil
}

// settleMetaTxnOTC settles the maker leg of a forwarded trade. The taker
// side was authenticated by the enclosing sequence signature, so the
// taker witness is NOT re-derived or re-verified here; the enclosing
// permit is consumed with the sequence witness, paying the maker.
func (s *Settler) settleMetaTxnOTC(ec *ExecutionContext, a MetaTxnOTC) error {
	takerPermit, takerSig, err := ec.consumeTakerPermit()
	if err != nil {
		return err
	}

	takerDetails := permitToTransferDetails(*takerPermit, a.Maker)
	if err := s.transfers.PermitWitnessTransferFrom(*takerPermit, takerDetails, ec.Payer, ec.SequenceWitness, ActionsWitnessTypeString, takerSig); err != nil {
		return fmt.Errorf("taker leg: %w", err)
	}

	makerConsideration := Consideration{
		Token:        takerPermit.Permitted.Token,
		Amount:       takerPermit.Permitted.Amount,
		Counterparty: ec.Payer,
	}
	makerWitness := makerConsideration.Hash()

	makerDetails := permitToTransferDetails(a.MakerPermit, a.Recipient)
	if err := s.transfers.PermitWitnessTransferFrom(a.MakerPermit, makerDetails, a.Maker, makerWitness, ConsiderationWitnessTypeString, a.MakerSig); err != nil {
		return fmt.Errorf("maker leg: %w", err)
	}

	// The taker never signed a consideration struct; derive their side of
	// the record from the maker permit so indexers still get a stable
	// hash pair.
	derivedTaker := Consideration{
		Token:        a.MakerPermit.Permitted.Token,
		Amount:       a.MakerPermit.Permitted.Amount,
		Counterparty: a.Maker,
	}
	s.emitSettlement(makerWitness, derivedTaker.Hash(), a.MakerPermit.Permitted.Amount)
	return nil
}

// settleSelfFundedOTC settles a maker-signed trade against the router's
// own live balance of the taker token. Only here do fractional fills
// occur: the fill is min(live balance, maxTakerAmount) and the maker
// payout scales proportionally with exact integer math.
func (s *Settler) settleSelfFundedOTC(ec *ExecutionContext, a SelfFundedOTC) error {
	if a.Taker != ec.Payer {
		return fmt.Errorf("%w: taker %s, effective principal %s", ErrPermissionDenied, a.Taker.Hex(), ec.Payer.Hex())
	}
	if a.MaxTakerAmount == nil || a.MaxTakerAmount.Sign() == 0 {
		return ErrZeroFillDenominator
	}

	// Live balance read, deliberately: an earlier action in the same
	// sequence may have funded the router, and that counts toward the
	// fill.
	takerAmount := s.state.BalanceOf(a.TakerToken, s.address)
	if takerAmount.Cmp(a.MaxTakerAmount) > 0 {
		takerAmount = new(big.Int).Set(a.MaxTakerAmount)
	}

	makerPayout := mulDiv(a.MakerPermit.Permitted.Amount, takerAmount, a.MaxTakerAmount)

	if err := s.state.Transfer(a.TakerToken, s.address, a.Maker, takerAmount); err != nil {
		return fmt.Errorf("taker leg: %w", err)
	}

	makerConsideration := Consideration{
		Token:              a.TakerToken,
		Amount:             a.MaxTakerAmount,
		Counterparty:       a.Taker,
		PartialFillAllowed: true,
	}
	makerWitness := makerConsideration.Hash()

	makerDetails := permit2.SignatureTransferDetails{To: a.Recipient, RequestedAmount: makerPayout}
	if err := s.transfers.PermitWitnessTransferFrom(a.MakerPermit, makerDetails, a.Maker, makerWitness, ConsiderationWitnessTypeString, a.MakerSig); err != nil {
		return fmt.Errorf("maker leg: %w", err)
	}

	derivedTaker := Consideration{
		Token:        a.MakerPermit.Permitted.Token,
		Amount:       a.MakerPermit.Permitted.Amount,
		Counterparty: a.Maker,
	}
	s.emitSettlement(makerWitness, derivedTaker.Hash(), makerPayout)

	s.logger.Debug("self-funded settlement",
		zap.String("taker_amount", takerAmount.String()),
		zap.String("max_taker_amount", a.MaxTakerAmount.String()),
		zap.String("maker_payout", makerPayout.String()),
	)
	return nil
}

// mulDiv computes a*b/denominator at full precision with a single
// rounding-down truncation. big.Int arithmetic never overflows an
// intermediate word, which is the whole point versus native math.
func mulDiv(a, b, denominator *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Div(out, denominator)
}

func (s *Settler) emitSettlement(makerHash, takerHash common.Hash, filled *big.Int) {
	s.state.AppendRecord(chain.SettlementRecord{
		MakerOrderHash: makerHash,
		TakerOrderHash: takerHash,
		FilledAmount:   new(big.Int).Set(filled),
	})
}
