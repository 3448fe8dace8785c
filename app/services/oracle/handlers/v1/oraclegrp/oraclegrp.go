// Package oraclegrp maintains the group of handlers for public access to
// the price attestation verifier.
package oraclegrp

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ardanlabs/oracle/business/core/mint"
	"github.com/ardanlabs/oracle/business/sys/validate"
	v1 "github.com/ardanlabs/oracle/business/web/v1"
	"github.com/ardanlabs/oracle/foundation/events"
	"github.com/ardanlabs/oracle/foundation/nameservice"
	"github.com/ardanlabs/oracle/foundation/oracle/attest"
	"github.com/ardanlabs/oracle/foundation/oracle/verifier"
	"github.com/ardanlabs/oracle/foundation/web"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Handlers manages the set of oracle endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	Verifier *verifier.Verifier
	Quoter   *mint.Quoter
	NS       *nameservice.NameService
	WS       websocket.Upgrader
	Evts     *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitAttestation validates and commits a new signed price attestation.
func (h Handlers) SubmitAttestation(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var app submitAttestation
	if err := web.Decode(r, &app); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := validate.Check(app); err != nil {
		return err
	}

	sat, err := toSignedAttestation(app)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit attestation", "traceid", v.TraceID, "price", sat.Price, "timestamp", sat.Timestamp)
	if err := h.Verifier.SubmitAttestation(sat); err != nil {
		return v1.NewRequestError(err, submitStatus(err))
	}

	resp := struct {
		Status    string `json:"status"`
		Price     string `json:"price"`
		Timestamp uint64 `json:"timestamp"`
	}{
		Status:    "attestation accepted",
		Price:     sat.Price.String(),
		Timestamp: sat.Timestamp,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// LatestAttested returns the last accepted price and its timestamp.
func (h Handlers) LatestAttested(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	price, timestamp := h.Verifier.LatestAttested()
	signer := h.Verifier.TrustedSigner()

	resp := struct {
		Price         string `json:"price"`
		Timestamp     uint64 `json:"timestamp"`
		TrustedSigner string `json:"trusted_signer"`
		SignerName    string `json:"signer_name"`
	}{
		Price:         price.String(),
		Timestamp:     timestamp,
		TrustedSigner: signer.String(),
		SignerName:    h.NS.Lookup(signer),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ReferencePrice returns the price reported by the reference feed.
func (h Handlers) ReferencePrice(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	price, err := h.Verifier.ReadLatestPrice()
	if err != nil {
		if errors.Is(err, verifier.ErrRoundIncomplete) {
			return v1.NewRequestError(err, http.StatusNotFound)
		}
		return err
	}

	resp := struct {
		Price string `json:"price"`
	}{
		Price: price.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Accepted returns every attestation the verifier has committed.
func (h Handlers) Accepted(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	recs, err := h.Verifier.Accepted()
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	items := make([]acceptedRecord, len(recs))
	for i, rec := range recs {
		items[i] = acceptedRecord{
			Price:      rec.Price.String(),
			Timestamp:  rec.Timestamp,
			Digest:     rec.Digest.String(),
			Signer:     rec.Signer.String(),
			SignerName: h.NS.Lookup(rec.Signer),
			Sig:        hexutil.Encode(rec.Sig),
		}
	}

	return web.Respond(ctx, w, items, http.StatusOK)
}

// MintQuote verifies the attestation signature and prices the payment at
// the attested value. No verifier state changes.
func (h Handlers) MintQuote(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app mintQuote
	if err := web.Decode(r, &app); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := validate.Check(app); err != nil {
		return err
	}

	sat, err := toSignedAttestation(app.submitAttestation)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	payment, err := decimal.NewFromString(app.Payment)
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("payment is not a valid decimal: %w", err), http.StatusBadRequest)
	}

	amount, err := h.Quoter.Quote(payment, sat)
	if err != nil {
		return v1.NewRequestError(err, submitStatus(err))
	}

	resp := struct {
		Amount string `json:"amount"`
	}{
		Amount: amount.String(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// toSignedAttestation converts the request model into a signed attestation,
// validating the price and signature encodings.
func toSignedAttestation(app submitAttestation) (attest.SignedAttestation, error) {
	price, ok := new(big.Int).SetString(app.Price, 10)
	if !ok {
		return attest.SignedAttestation{}, fmt.Errorf("price %q is not a valid integer", app.Price)
	}

	at, err := attest.New(price, app.Timestamp)
	if err != nil {
		return attest.SignedAttestation{}, err
	}

	sig, err := hexutil.Decode(app.Sig)
	if err != nil {
		return attest.SignedAttestation{}, fmt.Errorf("sig is not valid hex: %w", err)
	}

	sat := attest.SignedAttestation{
		Attestation: at,
		Sig:         sig,
	}

	return sat, nil
}

// submitStatus maps a verifier rejection to the HTTP status for the
// response.
func submitStatus(err error) int {
	switch {
	case errors.Is(err, verifier.ErrUntrustedSigner):
		return http.StatusForbidden
	case errors.Is(err, verifier.ErrStaleTimestamp),
		errors.Is(err, verifier.ErrTimestampTooFarInFuture),
		errors.Is(err, verifier.ErrDigestAlreadyUsed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
