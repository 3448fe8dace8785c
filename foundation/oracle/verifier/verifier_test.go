package verifier_test

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ardanlabs/oracle/foundation/oracle/attest"
	"github.com/ardanlabs/oracle/foundation/oracle/feed"
	"github.com/ardanlabs/oracle/foundation/oracle/store/memory"
	"github.com/ardanlabs/oracle/foundation/oracle/verifier"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

const (
	pkHexKey1 = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	pkHexKey2 = "8c0e960f7f148fe701feb0032c7d32b8d7d04816df1f2edd4b88fa5a7e64b4b5"
)

var (
	verifierID = common.HexToAddress("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")
	admin      = common.HexToAddress("0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9")
)

// currentTime is the fixed clock every test runs against.
const currentTime = 1724183592

func clock() time.Time {
	return time.Unix(currentTime, 0).UTC()
}

// =============================================================================

func signedAttestation(t *testing.T, pk *ecdsa.PrivateKey, price int64, timestamp uint64) attest.SignedAttestation {
	t.Helper()

	at, err := attest.New(big.NewInt(price), timestamp)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct an attestation: %s", failed, err)
	}

	sat, err := at.Sign(verifierID, pk)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign the attestation: %s", failed, err)
	}

	return sat
}

func newTestVerifier(t *testing.T, trustedSigner common.Address, evHandler verifier.EventHandler) *verifier.Verifier {
	t.Helper()

	strg, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the archive: %s", failed, err)
	}

	vrf, err := verifier.New(verifier.Config{
		VerifierID:    verifierID,
		Admin:         admin,
		TrustedSigner: trustedSigner,
		Feed:          feed.NewAggregator(8, "ETH / USD"),
		Store:         strg,
		EvHandler:     evHandler,
		Now:           clock,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the verifier: %s", failed, err)
	}

	return vrf
}

// =============================================================================

func TestSubmitAttestation(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk.PublicKey)

	t.Log("Given the need to accept a properly signed attestation.")
	{
		t.Logf("\tWhen handling an attestation signed by the trusted signer.")
		{
			vrf := newTestVerifier(t, signer, nil)
			defer vrf.Shutdown()

			sat := signedAttestation(t, pk, 250000000000, currentTime)

			if err := vrf.SubmitAttestation(sat); err != nil {
				t.Fatalf("\t%s\tShould be able to submit the attestation: %s", failed, err)
			}
			t.Logf("\t%s\tShould be able to submit the attestation.", success)

			price, ts := vrf.LatestAttested()
			if price.Cmp(big.NewInt(250000000000)) != 0 {
				t.Logf("\t\tgot: %v", price)
				t.Logf("\t\texp: %v", 250000000000)
				t.Fatalf("\t%s\tShould see the attested price committed.", failed)
			}
			t.Logf("\t%s\tShould see the attested price committed.", success)

			if ts != currentTime {
				t.Logf("\t\tgot: %d", ts)
				t.Logf("\t\texp: %d", currentTime)
				t.Fatalf("\t%s\tShould see the attested timestamp committed.", failed)
			}
			t.Logf("\t%s\tShould see the attested timestamp committed.", success)
		}
	}
}

func TestMonotonicTimestamps(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk.PublicKey)

	t.Log("Given the need to enforce strictly increasing timestamps.")
	{
		vrf := newTestVerifier(t, signer, nil)
		defer vrf.Shutdown()

		base := uint64(currentTime - 100)

		t.Logf("\tWhen submitting attestations out of order.")
		{
			if err := vrf.SubmitAttestation(signedAttestation(t, pk, 100, base)); err != nil {
				t.Fatalf("\t%s\tShould be able to submit the first attestation: %s", failed, err)
			}
			t.Logf("\t%s\tShould be able to submit the first attestation.", success)

			err := vrf.SubmitAttestation(signedAttestation(t, pk, 200, base))
			if !errors.Is(err, verifier.ErrStaleTimestamp) {
				t.Fatalf("\t%s\tShould reject an equal timestamp as stale: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject an equal timestamp as stale.", success)

			err = vrf.SubmitAttestation(signedAttestation(t, pk, 200, base-1))
			if !errors.Is(err, verifier.ErrStaleTimestamp) {
				t.Fatalf("\t%s\tShould reject an older timestamp as stale: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject an older timestamp as stale.", success)

			price, _ := vrf.LatestAttested()
			if price.Cmp(big.NewInt(100)) != 0 {
				t.Logf("\t\tgot: %v", price)
				t.Logf("\t\texp: %v", 100)
				t.Fatalf("\t%s\tShould keep the first price after rejections.", failed)
			}
			t.Logf("\t%s\tShould keep the first price after rejections.", success)
		}
	}
}

func TestFutureBound(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk.PublicKey)

	t.Log("Given the need to bound how far ahead of the clock a timestamp may run.")
	{
		vrf := newTestVerifier(t, signer, nil)
		defer vrf.Shutdown()

		t.Logf("\tWhen submitting attestations at and past the bound.")
		{
			err := vrf.SubmitAttestation(signedAttestation(t, pk, 100, currentTime+301))
			if !errors.Is(err, verifier.ErrTimestampTooFarInFuture) {
				t.Fatalf("\t%s\tShould reject a timestamp 301 seconds ahead: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject a timestamp 301 seconds ahead.", success)

			if err := vrf.SubmitAttestation(signedAttestation(t, pk, 100, currentTime+300)); err != nil {
				t.Fatalf("\t%s\tShould accept a timestamp exactly 300 seconds ahead: %s", failed, err)
			}
			t.Logf("\t%s\tShould accept a timestamp exactly 300 seconds ahead.", success)
		}
	}
}

func TestReplayProtection(t *testing.T) {
	pk1, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk1.PublicKey)

	pk2, err := crypto.HexToECDSA(pkHexKey2)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the second private key: %s", failed, err)
	}

	t.Log("Given the need to reject a digest that has already been used.")
	{
		vrf := newTestVerifier(t, signer, nil)
		defer vrf.Shutdown()

		sat := signedAttestation(t, pk1, 250000000000, currentTime)

		if err := vrf.SubmitAttestation(sat); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the attestation: %s", failed, err)
		}
		t.Logf("\t%s\tShould be able to submit the attestation.", success)

		t.Logf("\tWhen replaying the same signed attestation.")
		{
			err := vrf.SubmitAttestation(sat)
			if !errors.Is(err, verifier.ErrDigestAlreadyUsed) {
				t.Fatalf("\t%s\tShould reject the replay as a used digest: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the replay as a used digest.", success)
		}

		t.Logf("\tWhen re-signing the same price and timestamp with a different key.")
		{
			// The digest excludes the signature, so a different key over the
			// same price and timestamp lands on a digest that is already
			// used. The verifier must catch that before it ever recovers
			// the signer.
			err := vrf.SubmitAttestation(signedAttestation(t, pk2, 250000000000, currentTime))
			if !errors.Is(err, verifier.ErrDigestAlreadyUsed) {
				t.Fatalf("\t%s\tShould reject the re-signed claim as a used digest: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the re-signed claim as a used digest.", success)
		}

		t.Logf("\tWhen submitting an older claim that was never accepted.")
		{
			err := vrf.SubmitAttestation(signedAttestation(t, pk1, 100, currentTime-10))
			if !errors.Is(err, verifier.ErrStaleTimestamp) {
				t.Fatalf("\t%s\tShould reject a fresh digest behind the clock as stale: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject a fresh digest behind the clock as stale.", success)
		}
	}
}

func TestUntrustedSigner(t *testing.T) {
	pk1, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk1.PublicKey)

	pk2, err := crypto.HexToECDSA(pkHexKey2)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the second private key: %s", failed, err)
	}

	t.Log("Given the need to reject attestations from anyone but the trusted signer.")
	{
		vrf := newTestVerifier(t, signer, nil)
		defer vrf.Shutdown()

		t.Logf("\tWhen handling an attestation signed by an untrusted key.")
		{
			err := vrf.SubmitAttestation(signedAttestation(t, pk2, 250000000000, currentTime))
			if !errors.Is(err, verifier.ErrUntrustedSigner) {
				t.Fatalf("\t%s\tShould reject the untrusted signer: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the untrusted signer.", success)

			_, ts := vrf.LatestAttested()
			if ts != 0 {
				t.Fatalf("\t%s\tShould leave state untouched after the rejection.", failed)
			}
			t.Logf("\t%s\tShould leave state untouched after the rejection.", success)
		}

		t.Logf("\tWhen handling an attestation with a mangled signature.")
		{
			sat := signedAttestation(t, pk1, 250000000000, currentTime)
			sat.Sig = sat.Sig[:10]

			err := vrf.SubmitAttestation(sat)
			if !errors.Is(err, verifier.ErrInvalidSignature) {
				t.Fatalf("\t%s\tShould reject the mangled signature: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the mangled signature.", success)
		}
	}
}

func TestRotateTrustedSigner(t *testing.T) {
	pk1, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer1 := crypto.PubkeyToAddress(pk1.PublicKey)

	pk2, err := crypto.HexToECDSA(pkHexKey2)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the second private key: %s", failed, err)
	}
	signer2 := crypto.PubkeyToAddress(pk2.PublicKey)

	t.Log("Given the need to rotate the trusted signer.")
	{
		vrf := newTestVerifier(t, signer1, nil)
		defer vrf.Shutdown()

		if err := vrf.SubmitAttestation(signedAttestation(t, pk1, 100, currentTime-100)); err != nil {
			t.Fatalf("\t%s\tShould be able to submit under the original signer: %s", failed, err)
		}

		t.Logf("\tWhen a non admin attempts the rotation.")
		{
			err := vrf.RotateTrustedSigner(signer2, signer2)
			if !errors.Is(err, verifier.ErrUnauthorized) {
				t.Fatalf("\t%s\tShould reject the rotation as unauthorized: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the rotation as unauthorized.", success)
		}

		t.Logf("\tWhen the admin rotates to the zero address.")
		{
			err := vrf.RotateTrustedSigner(admin, common.Address{})
			if !errors.Is(err, verifier.ErrInvalidSigner) {
				t.Fatalf("\t%s\tShould reject the zero address: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the zero address.", success)
		}

		t.Logf("\tWhen the admin rotates to a new signer.")
		{
			if err := vrf.RotateTrustedSigner(admin, signer2); err != nil {
				t.Fatalf("\t%s\tShould be able to rotate the signer: %s", failed, err)
			}
			t.Logf("\t%s\tShould be able to rotate the signer.", success)

			if vrf.TrustedSigner() != signer2 {
				t.Fatalf("\t%s\tShould report the new trusted signer.", failed)
			}
			t.Logf("\t%s\tShould report the new trusted signer.", success)

			err := vrf.SubmitAttestation(signedAttestation(t, pk1, 200, currentTime-50))
			if !errors.Is(err, verifier.ErrUntrustedSigner) {
				t.Fatalf("\t%s\tShould reject the old signer after rotation: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the old signer after rotation.", success)

			if err := vrf.SubmitAttestation(signedAttestation(t, pk2, 200, currentTime-40)); err != nil {
				t.Fatalf("\t%s\tShould accept the new signer after rotation: %s", failed, err)
			}
			t.Logf("\t%s\tShould accept the new signer after rotation.", success)

			// Rotation is not retroactive. The record accepted under the
			// old signer stays committed and its digest stays used.
			recs, err := vrf.Accepted()
			if err != nil {
				t.Fatalf("\t%s\tShould be able to read the archive: %s", failed, err)
			}
			if len(recs) != 2 {
				t.Logf("\t\tgot: %d", len(recs))
				t.Logf("\t\texp: %d", 2)
				t.Fatalf("\t%s\tShould keep records accepted under the old signer.", failed)
			}
			t.Logf("\t%s\tShould keep records accepted under the old signer.", success)
		}
	}
}

func TestArchiveReplay(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk.PublicKey)

	t.Log("Given the need to rebuild state from the archive on startup.")
	{
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the archive: %s", failed, err)
		}

		cfg := verifier.Config{
			VerifierID:    verifierID,
			Admin:         admin,
			TrustedSigner: signer,
			Feed:          feed.NewAggregator(8, "ETH / USD"),
			Store:         strg,
			Now:           clock,
		}

		vrf, err := verifier.New(cfg)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the verifier: %s", failed, err)
		}

		sat1 := signedAttestation(t, pk, 100, currentTime-100)
		sat2 := signedAttestation(t, pk, 200, currentTime-50)

		if err := vrf.SubmitAttestation(sat1); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the first attestation: %s", failed, err)
		}
		if err := vrf.SubmitAttestation(sat2); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the second attestation: %s", failed, err)
		}

		t.Logf("\tWhen constructing a new verifier over the same archive.")
		{
			vrf2, err := verifier.New(cfg)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to construct the verifier: %s", failed, err)
			}

			price, ts := vrf2.LatestAttested()
			if price.Cmp(big.NewInt(200)) != 0 || ts != currentTime-50 {
				t.Logf("\t\tgot: %v %d", price, ts)
				t.Logf("\t\texp: %v %d", 200, currentTime-50)
				t.Fatalf("\t%s\tShould restore the latest price and timestamp.", failed)
			}
			t.Logf("\t%s\tShould restore the latest price and timestamp.", success)

			err = vrf2.SubmitAttestation(sat2)
			if !errors.Is(err, verifier.ErrDigestAlreadyUsed) {
				t.Fatalf("\t%s\tShould reject a replay against the restored state: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject a replay against the restored state.", success)
		}
	}
}

func TestEventOrdering(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk.PublicKey)

	t.Log("Given the need to emit PriceUpdated before SignatureVerified.")
	{
		var events []string
		ev := func(v string, args ...any) {
			events = append(events, v)
		}

		vrf := newTestVerifier(t, signer, ev)
		defer vrf.Shutdown()

		if err := vrf.SubmitAttestation(signedAttestation(t, pk, 100, currentTime)); err != nil {
			t.Fatalf("\t%s\tShould be able to submit the attestation: %s", failed, err)
		}

		if len(events) != 2 {
			t.Logf("\t\tgot: %d", len(events))
			t.Logf("\t\texp: %d", 2)
			t.Fatalf("\t%s\tShould see two events for the accepted attestation.", failed)
		}
		t.Logf("\t%s\tShould see two events for the accepted attestation.", success)

		if events[0] != "verifier: PriceUpdated: price[%v] timestamp[%d]" {
			t.Fatalf("\t%s\tShould see PriceUpdated first: %q", failed, events[0])
		}
		t.Logf("\t%s\tShould see PriceUpdated first.", success)

		if events[1] != "verifier: SignatureVerified: signer[%s] digest[%s]" {
			t.Fatalf("\t%s\tShould see SignatureVerified second: %q", failed, events[1])
		}
		t.Logf("\t%s\tShould see SignatureVerified second.", success)
	}
}

func TestReadLatestPrice(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk.PublicKey)

	t.Log("Given the need to read the reference price from the feed.")
	{
		strg, err := memory.New()
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the archive: %s", failed, err)
		}

		agg := feed.NewAggregator(8, "ETH / USD")

		vrf, err := verifier.New(verifier.Config{
			VerifierID:    verifierID,
			Admin:         admin,
			TrustedSigner: signer,
			Feed:          agg,
			Store:         strg,
			Now:           clock,
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to construct the verifier: %s", failed, err)
		}
		defer vrf.Shutdown()

		t.Logf("\tWhen the feed has not completed a round.")
		{
			_, err := vrf.ReadLatestPrice()
			if !errors.Is(err, verifier.ErrRoundIncomplete) {
				t.Fatalf("\t%s\tShould reject the read with an incomplete round: %v", failed, err)
			}
			t.Logf("\t%s\tShould reject the read with an incomplete round.", success)
		}

		t.Logf("\tWhen the feed has an answer.")
		{
			agg.UpdateAnswer(big.NewInt(250000000000))

			price, err := vrf.ReadLatestPrice()
			if err != nil {
				t.Fatalf("\t%s\tShould be able to read the price: %s", failed, err)
			}
			t.Logf("\t%s\tShould be able to read the price.", success)

			if price.Cmp(big.NewInt(250000000000)) != 0 {
				t.Logf("\t\tgot: %v", price)
				t.Logf("\t\texp: %v", 250000000000)
				t.Fatalf("\t%s\tShould get the feed answer back.", failed)
			}
			t.Logf("\t%s\tShould get the feed answer back.", success)
		}
	}
}

func TestNewValidation(t *testing.T) {
	pk, err := crypto.HexToECDSA(pkHexKey1)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the private key: %s", failed, err)
	}
	signer := crypto.PubkeyToAddress(pk.PublicKey)

	strg, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the archive: %s", failed, err)
	}

	t.Log("Given the need to validate the verifier configuration.")
	{
		_, err := verifier.New(verifier.Config{
			VerifierID: verifierID,
			Admin:      admin,
			Feed:       feed.NewAggregator(8, "ETH / USD"),
			Store:      strg,
		})
		if !errors.Is(err, verifier.ErrInvalidSigner) {
			t.Fatalf("\t%s\tShould reject a zero trusted signer: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a zero trusted signer.", success)

		_, err = verifier.New(verifier.Config{
			VerifierID:    verifierID,
			Admin:         admin,
			TrustedSigner: signer,
			Store:         strg,
		})
		if err == nil {
			t.Fatalf("\t%s\tShould reject a missing feed.", failed)
		}
		t.Logf("\t%s\tShould reject a missing feed.", success)
	}
}
