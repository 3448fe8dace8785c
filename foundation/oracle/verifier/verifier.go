// Package verifier is the core API for accepting price attestations and
// implements all the business rules and processing.
package verifier

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ardanlabs/oracle/foundation/oracle/attest"
	"github.com/ardanlabs/oracle/foundation/oracle/feed"
	"github.com/ardanlabs/oracle/foundation/oracle/store"
	"github.com/ethereum/go-ethereum/common"
)

// forwardTolerance is how many seconds past the current clock an
// attestation timestamp may run before it is rejected. The bound is
// inclusive and limits how far a clock skewed signer can pre-date
// future attestations.
const forwardTolerance = 300

// =============================================================================

// EventHandler defines a function that is called when events occur in the
// processing of attestations.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to construct the verifier.
type Config struct {
	VerifierID    common.Address
	Admin         common.Address
	TrustedSigner common.Address
	Feed          feed.Reader
	Store         store.Archiver
	EvHandler     EventHandler
	Now           func() time.Time
}

// Verifier manages the attested price state. A single mutex covers the
// whole check then commit sequence and signer rotation so a second
// submission can never observe a partially applied update.
type Verifier struct {
	verifierID common.Address
	admin      common.Address
	feed       feed.Reader
	store      store.Archiver
	evHandler  EventHandler
	now        func() time.Time

	mu             sync.Mutex
	trustedSigner  common.Address
	latestPrice    *big.Int
	lastUpdateTime uint64
	usedDigests    map[common.Hash]struct{}
}

// New constructs a new verifier, replaying any archived records to rebuild
// the replay protection state.
func New(cfg Config) (*Verifier, error) {
	if cfg.TrustedSigner == (common.Address{}) {
		return nil, ErrInvalidSigner
	}

	if cfg.Admin == (common.Address{}) {
		return nil, fmt.Errorf("admin address is required")
	}

	if cfg.Feed == nil {
		return nil, fmt.Errorf("feed reader is required")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("record archiver is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	vrf := Verifier{
		verifierID: cfg.VerifierID,
		admin:      cfg.Admin,
		feed:       cfg.Feed,
		store:      cfg.Store,
		evHandler:  ev,
		now:        now,

		trustedSigner: cfg.TrustedSigner,
		latestPrice:   big.NewInt(0),
		usedDigests:   make(map[common.Hash]struct{}),
	}

	// Load all existing records from the archive. Records were written in
	// acceptance order so the timestamps strictly increase and the last
	// record carries the current price.
	iter := vrf.store.ForEach()
	for rec, err := iter.Next(); !iter.Done(); rec, err = iter.Next() {
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}

		if rec.Timestamp <= vrf.lastUpdateTime {
			return nil, fmt.Errorf("archive out of order at timestamp %d", rec.Timestamp)
		}

		vrf.usedDigests[rec.Digest] = struct{}{}
		vrf.latestPrice = new(big.Int).Set(rec.Price)
		vrf.lastUpdateTime = rec.Timestamp

		ev("verifier: restored attestation: price[%v] timestamp[%d]", rec.Price, rec.Timestamp)
	}

	return &vrf, nil
}

// Shutdown cleanly brings the verifier down.
func (vrf *Verifier) Shutdown() error {
	return vrf.store.Close()
}

// =============================================================================

// SubmitAttestation validates the signed attestation against the trusted
// signer and prior state and, only if every check passes, commits it as the
// new latest price. The checks run in order, first failure wins, and a
// failure never leaves a partial state change behind.
func (vrf *Verifier) SubmitAttestation(sat attest.SignedAttestation) error {
	// Reject malformed values before any protocol checks. Digest packing
	// requires the price to fit the signed 256 bit range.
	if _, err := attest.New(sat.Price, sat.Timestamp); err != nil {
		return fmt.Errorf("invalid attestation: %w", err)
	}

	vrf.mu.Lock()
	defer vrf.mu.Unlock()

	// The digest binds price, timestamp and this verifier's identity. It
	// excludes the signature so re-signing the same claim with a different
	// key cannot produce a fresh digest. A used digest always carries a
	// timestamp at or before lastUpdateTime, so this check runs first to
	// report a replay as a replay rather than as a stale timestamp.
	digest := sat.Digest(vrf.verifierID)
	if _, exists := vrf.usedDigests[digest]; exists {
		return ErrDigestAlreadyUsed
	}

	// The timestamp must be strictly newer than the last accepted update.
	// An equal timestamp is rejected as well.
	if sat.Timestamp <= vrf.lastUpdateTime {
		return ErrStaleTimestamp
	}

	// The timestamp may run at most forwardTolerance seconds past the
	// current clock. The bound is inclusive.
	if sat.Timestamp > uint64(vrf.now().UTC().Unix())+forwardTolerance {
		return ErrTimestampTooFarInFuture
	}

	// Recover the account that signed the digest and check it against the
	// trusted signer.
	signer, err := attest.RecoverSigner(digest, sat.Sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if signer != vrf.trustedSigner {
		return ErrUntrustedSigner
	}

	// Archive the record before touching state so a write failure rejects
	// the attestation with nothing applied.
	rec := store.Record{
		Price:     sat.Price,
		Timestamp: sat.Timestamp,
		Digest:    digest,
		Signer:    signer,
		Sig:       sat.Sig,
	}
	if err := vrf.store.Write(rec); err != nil {
		return fmt.Errorf("archiving attestation: %w", err)
	}

	vrf.latestPrice = new(big.Int).Set(sat.Price)
	vrf.lastUpdateTime = sat.Timestamp
	vrf.usedDigests[digest] = struct{}{}

	vrf.evHandler("verifier: PriceUpdated: price[%v] timestamp[%d]", sat.Price, sat.Timestamp)
	vrf.evHandler("verifier: SignatureVerified: signer[%s] digest[%s]", signer, digest)

	return nil
}

// VerifySignature recovers and returns the account that signed the
// specified digest. It performs no trust or freshness checks and touches
// no state. Callers that need to validate authenticity before performing
// their own side effects use this directly.
func (vrf *Verifier) VerifySignature(digest common.Hash, sig []byte) (common.Address, error) {
	signer, err := attest.RecoverSigner(digest, sig)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}

	return signer, nil
}

// RotateTrustedSigner replaces the trusted signer. Only the administrator
// may rotate and the new signer cannot be the zero address. Digests already
// accepted under the old signer stay used and cannot be replayed.
func (vrf *Verifier) RotateTrustedSigner(caller common.Address, newSigner common.Address) error {
	vrf.mu.Lock()
	defer vrf.mu.Unlock()

	if caller != vrf.admin {
		return ErrUnauthorized
	}

	if newSigner == (common.Address{}) {
		return ErrInvalidSigner
	}

	vrf.trustedSigner = newSigner

	vrf.evHandler("verifier: SignerRotated: signer[%s]", newSigner)

	return nil
}

// =============================================================================

// ReadLatestPrice returns the reference price reported by the feed. This is
// a distinct read path from the attested price and callers must not
// conflate the two.
func (vrf *Verifier) ReadLatestPrice() (*big.Int, error) {
	round, err := vrf.feed.LatestRoundData()
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}

	if round.UpdatedAt == 0 {
		return nil, ErrRoundIncomplete
	}

	return round.Answer, nil
}

// LatestAttested returns the last accepted price and its timestamp. The
// timestamp is zero when no attestation has been accepted yet.
func (vrf *Verifier) LatestAttested() (*big.Int, uint64) {
	vrf.mu.Lock()
	defer vrf.mu.Unlock()

	return new(big.Int).Set(vrf.latestPrice), vrf.lastUpdateTime
}

// TrustedSigner returns the account whose signatures are currently accepted.
func (vrf *Verifier) TrustedSigner() common.Address {
	vrf.mu.Lock()
	defer vrf.mu.Unlock()

	return vrf.trustedSigner
}

// VerifierID returns the identity attestation digests are bound to.
func (vrf *Verifier) VerifierID() common.Address {
	return vrf.verifierID
}

// Accepted returns a copy of every record in the archive in acceptance
// order.
func (vrf *Verifier) Accepted() ([]store.Record, error) {
	var recs []store.Record

	iter := vrf.store.ForEach()
	for rec, err := iter.Next(); !iter.Done(); rec, err = iter.Next() {
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}

		recs = append(recs, rec)
	}

	return recs, nil
}
