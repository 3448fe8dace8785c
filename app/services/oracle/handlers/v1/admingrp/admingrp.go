// Package admingrp maintains the group of handlers for administrative
// access. These routes are only bound to the private API host.
package admingrp

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ardanlabs/oracle/business/sys/validate"
	v1 "github.com/ardanlabs/oracle/business/web/v1"
	"github.com/ardanlabs/oracle/foundation/nameservice"
	"github.com/ardanlabs/oracle/foundation/oracle/feed"
	"github.com/ardanlabs/oracle/foundation/oracle/verifier"
	"github.com/ardanlabs/oracle/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Handlers manages the set of admin endpoints.
type Handlers struct {
	Log      *zap.SugaredLogger
	Verifier *verifier.Verifier
	Agg      *feed.Aggregator
	NS       *nameservice.NameService
}

// Status returns the current state of the verifier and the feed.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	price, timestamp := h.Verifier.LatestAttested()
	signer := h.Verifier.TrustedSigner()

	recs, err := h.Verifier.Accepted()
	if err != nil {
		return err
	}

	round, err := h.Agg.LatestRoundData()
	if err != nil {
		return err
	}

	resp := struct {
		VerifierID    string `json:"verifier_id"`
		TrustedSigner string `json:"trusted_signer"`
		SignerName    string `json:"signer_name"`
		Price         string `json:"price"`
		Timestamp     uint64 `json:"timestamp"`
		Accepted      int    `json:"accepted"`
		FeedRound     uint64 `json:"feed_round"`
		FeedPair      string `json:"feed_pair"`
	}{
		VerifierID:    h.Verifier.VerifierID().String(),
		TrustedSigner: signer.String(),
		SignerName:    h.NS.Lookup(signer),
		Price:         price.String(),
		Timestamp:     timestamp,
		Accepted:      len(recs),
		FeedRound:     round.RoundID,
		FeedPair:      h.Agg.Description(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// RotateSigner replaces the trusted signer. The caller must be the
// administrator established at startup.
func (h Handlers) RotateSigner(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var app rotateSigner
	if err := web.Decode(r, &app); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := validate.Check(app); err != nil {
		return err
	}

	if !common.IsHexAddress(app.Caller) {
		return v1.NewRequestError(errors.New("caller is not a valid address"), http.StatusBadRequest)
	}
	if !common.IsHexAddress(app.NewSigner) {
		return v1.NewRequestError(errors.New("new_signer is not a valid address"), http.StatusBadRequest)
	}

	caller := common.HexToAddress(app.Caller)
	newSigner := common.HexToAddress(app.NewSigner)

	h.Log.Infow("rotate signer", "traceid", v.TraceID, "caller", caller, "newsigner", newSigner)
	if err := h.Verifier.RotateTrustedSigner(caller, newSigner); err != nil {
		switch {
		case errors.Is(err, verifier.ErrUnauthorized):
			return v1.NewRequestError(err, http.StatusUnauthorized)
		default:
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
	}

	resp := struct {
		Status        string `json:"status"`
		TrustedSigner string `json:"trusted_signer"`
		SignerName    string `json:"signer_name"`
	}{
		Status:        "signer rotated",
		TrustedSigner: newSigner.String(),
		SignerName:    h.NS.Lookup(newSigner),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UpdateAnswer records a new answer in the reference feed. This exists so
// a deployment can drive the simulated feed while testing.
func (h Handlers) UpdateAnswer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var app updateAnswer
	if err := web.Decode(r, &app); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := validate.Check(app); err != nil {
		return err
	}

	answer, ok := new(big.Int).SetString(app.Answer, 10)
	if !ok {
		return v1.NewRequestError(fmt.Errorf("answer %q is not a valid integer", app.Answer), http.StatusBadRequest)
	}

	roundID := h.Agg.UpdateAnswer(answer)

	resp := struct {
		Status  string `json:"status"`
		RoundID uint64 `json:"round_id"`
	}{
		Status:  "answer recorded",
		RoundID: roundID,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

// rotateSigner is the payload for replacing the trusted signer.
type rotateSigner struct {
	Caller    string `json:"caller" validate:"required"`
	NewSigner string `json:"new_signer" validate:"required"`
}

// updateAnswer is the payload for recording a new feed answer.
type updateAnswer struct {
	Answer string `json:"answer" validate:"required"`
}
