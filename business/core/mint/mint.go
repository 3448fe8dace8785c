// Package mint provides the price-driven mint amount arithmetic for
// callers that exchange a payment for tokens at the attested price.
package mint

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/oracle/foundation/oracle/attest"
	"github.com/ardanlabs/oracle/foundation/oracle/verifier"
	"github.com/shopspring/decimal"
)

// ErrNonPositivePrice is returned when a quote is requested against a zero
// or negative price.
var ErrNonPositivePrice = errors.New("price must be positive")

// Amount computes the number of tokens minted for the specified payment at
// the specified price. The price is a fixed point value using the feed's
// number of decimals.
func Amount(payment decimal.Decimal, price *big.Int, decimals int32) (decimal.Decimal, error) {
	if price == nil || price.Sign() <= 0 {
		return decimal.Zero, ErrNonPositivePrice
	}

	if payment.IsNegative() {
		return decimal.Zero, errors.New("payment cannot be negative")
	}

	unitPrice := decimal.NewFromBigInt(price, -decimals)

	return payment.Div(unitPrice), nil
}

// =============================================================================

// Quoter prices mint requests against signed attestations. Authenticity is
// checked through the verifier's pure recovery path before any arithmetic
// runs, so a quote never causes a state change.
type Quoter struct {
	verifier *verifier.Verifier
	decimals int32
}

// NewQuoter constructs a quoter for the specified verifier and feed
// precision.
func NewQuoter(vrf *verifier.Verifier, decimals int32) *Quoter {
	return &Quoter{
		verifier: vrf,
		decimals: decimals,
	}
}

// Quote verifies the attestation was signed by the trusted signer and
// returns the mint amount for the payment at the attested price.
func (q *Quoter) Quote(payment decimal.Decimal, sat attest.SignedAttestation) (decimal.Decimal, error) {
	if sat.Price == nil {
		return decimal.Zero, fmt.Errorf("attestation price is required")
	}

	digest := sat.Digest(q.verifier.VerifierID())

	signer, err := q.verifier.VerifySignature(digest, sat.Sig)
	if err != nil {
		return decimal.Zero, err
	}

	if signer != q.verifier.TrustedSigner() {
		return decimal.Zero, verifier.ErrUntrustedSigner
	}

	return Amount(payment, sat.Price, q.decimals)
}
