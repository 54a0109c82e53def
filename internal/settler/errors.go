package settler

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAction is returned when an action's selector is not part
	// of the supported set.
	ErrUnknownAction = errors.New("unknown action")

	// ErrDecode is returned when an action with a known selector carries
	// a malformed argument encoding.
	ErrDecode = errors.New("malformed action payload")

	// ErrPermissionDenied is returned when the effective principal does
	// not match the principal a handler expects, or when a forwarded-only
	// action runs outside a meta-transaction.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidBatch is returned when a batch permit has more than two
	// entries or its fee entry's token differs from the primary token.
	// Raised before the external transfer service is ever invoked.
	ErrInvalidBatch = errors.New("invalid batch permit")

	// ErrZeroFillDenominator is returned when a self-funded settlement is
	// submitted with a zero max taker amount. Precondition violation;
	// never silently treated as a zero fill.
	ErrZeroFillDenominator = errors.New("max taker amount must not be zero")

	// ErrInvalidPayout is returned when a transfer-out action requests
	// more than 10000 basis points.
	ErrInvalidPayout = errors.New("payout basis points exceed 10000")

	// ErrFundingReused is returned when a swap adapter invokes its
	// funding authorization more than once.
	ErrFundingReused = errors.New("funding authorization already used")

	// ErrNoSwapAdapter is returned when a swap action runs on a router
	// configured without a swap adapter.
	ErrNoSwapAdapter = errors.New("no swap adapter configured")

	// ErrExternalCall wraps failures propagated from the swap adapter.
	ErrExternalCall = errors.New("external call failed")
)

// ActionError reports which action in a sequence failed and why. The
// whole call is reverted when it is returned; the index lets callers
// diagnose the failure without re-simulating.
type ActionError struct {
	Index    int
	Selector [4]byte
	Err      error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d (selector %x): %v", e.Index, e.Selector, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
