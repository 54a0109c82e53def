package settler

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/halcyonlabs/settler-go/internal/permit2"
)

// permitToTransferDetails derives the single transfer leg of a permit
// deterministically: the full permitted amount goes to recipient.
func permitToTransferDetails(permit permit2.PermitTransferFrom, recipient common.Address) permit2.SignatureTransferDetails {
	return permit2.SignatureTransferDetails{
		To:              recipient,
		RequestedAmount: permit.Permitted.Amount,
	}
}

// batchPermitToTransferDetails derives the transfer legs of a batch
// permit: entry 0 pays recipient, the optional entry 1 pays the fee
// recipient. Shape validation happens here, before the external transfer
// service is ever invoked: more than two entries, or a fee entry in a
// different token than the primary, is an invalid batch.
func batchPermitToTransferDetails(permit permit2.PermitBatchTransferFrom, recipient, feeRecipient common.Address) ([]permit2.SignatureTransferDetails, error) {
	n := len(permit.Permitted)
	if n == 0 || n > 2 {
		return nil, fmt.Errorf("%w: %d entries", ErrInvalidBatch, n)
	}
	if n == 2 && permit.Permitted[1].Token != permit.Permitted[0].Token {
		return nil, fmt.Errorf("%w: fee token %s does not match %s",
			ErrInvalidBatch, permit.Permitted[1].Token.Hex(), permit.Permitted[0].Token.Hex())
	}

	details := []permit2.SignatureTransferDetails{
		{To: recipient, RequestedAmount: permit.Permitted[0].Amount},
	}
	if n == 2 {
		details = append(details, permit2.SignatureTransferDetails{
			To:              feeRecipient,
			RequestedAmount: permit.Permitted[1].Amount,
		})
	}
	return details, nil
}

// transferFrom consumes a single unwitnessed permit.
func (s *Settler) transferFrom(a TransferFrom) error {
	details := permitToTransferDetails(a.Permit, a.Recipient)
	return s.transfers.PermitTransferFrom(a.Permit, details, a.Owner, a.Sig)
}

// batchTransferFrom consumes a batch permit with the optional fee leg.
func (s *Settler) batchTransferFrom(a BatchTransferFrom) error {
	details, err := batchPermitToTransferDetails(a.Permit, a.Recipient, a.FeeRecipient)
	if err != nil {
		return err
	}
	return s.transfers.PermitBatchTransferFrom(a.Permit, details, a.Owner, a.Sig)
}
