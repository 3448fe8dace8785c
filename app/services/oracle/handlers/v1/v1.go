// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/oracle/app/services/oracle/handlers/v1/admingrp"
	"github.com/ardanlabs/oracle/app/services/oracle/handlers/v1/oraclegrp"
	"github.com/ardanlabs/oracle/business/core/mint"
	"github.com/ardanlabs/oracle/foundation/events"
	"github.com/ardanlabs/oracle/foundation/nameservice"
	"github.com/ardanlabs/oracle/foundation/oracle/feed"
	"github.com/ardanlabs/oracle/foundation/oracle/verifier"
	"github.com/ardanlabs/oracle/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log      *zap.SugaredLogger
	Verifier *verifier.Verifier
	Agg      *feed.Aggregator
	Quoter   *mint.Quoter
	NS       *nameservice.NameService
	Evts     *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	ogh := oraclegrp.Handlers{
		Log:      cfg.Log,
		Verifier: cfg.Verifier,
		Quoter:   cfg.Quoter,
		NS:       cfg.NS,
		Evts:     cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", ogh.Events)
	app.Handle(http.MethodGet, version, "/price/attested", ogh.LatestAttested)
	app.Handle(http.MethodGet, version, "/price/reference", ogh.ReferencePrice)
	app.Handle(http.MethodGet, version, "/attestation/list", ogh.Accepted)
	app.Handle(http.MethodPost, version, "/attestation/submit", ogh.SubmitAttestation)
	app.Handle(http.MethodPost, version, "/mint/quote", ogh.MintQuote)
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	agh := admingrp.Handlers{
		Log:      cfg.Log,
		Verifier: cfg.Verifier,
		Agg:      cfg.Agg,
		NS:       cfg.NS,
	}

	app.Handle(http.MethodGet, version, "/status", agh.Status)
	app.Handle(http.MethodPost, version, "/signer/rotate", agh.RotateSigner)
	app.Handle(http.MethodPost, version, "/feed/answer", agh.UpdateAnswer)
}
