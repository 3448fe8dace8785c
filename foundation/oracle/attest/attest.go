// Package attest provides the types and signing support for price
// attestations submitted to the verifier.
package attest

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// twoTo256 is used to produce the two's complement representation of a
// negative price when packing it into the digest.
var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

// maxInt256 and minInt256 bound the prices an attestation can carry.
var (
	maxInt256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 255), big.NewInt(1))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// =============================================================================

// Attestation is the price claim constructed by an attestor. It is signed
// before submission and never stored in this form.
type Attestation struct {
	Price     *big.Int `json:"price"`     // Claimed price in the feed's fixed-point representation.
	Timestamp uint64   `json:"timestamp"` // Seconds since epoch the price was observed.
}

// New constructs an attestation and validates the price fits the 256 bit
// signed range the digest packing requires.
func New(price *big.Int, timestamp uint64) (Attestation, error) {
	if price == nil {
		return Attestation{}, errors.New("price is required")
	}

	if price.Cmp(minInt256) < 0 || price.Cmp(maxInt256) > 0 {
		return Attestation{}, fmt.Errorf("price %v outside the signed 256 bit range", price)
	}

	at := Attestation{
		Price:     price,
		Timestamp: timestamp,
	}

	return at, nil
}

// Digest returns the unique hash for this attestation bound to the specified
// verifier. The digest covers the price, the timestamp and the verifier
// identity only. The signature is never part of the digest so the same claim
// signed by two different keys collides on purpose.
func (at Attestation) Digest(verifierID common.Address) common.Hash {

	// Pack the price into 32 bytes using two's complement so negative
	// prices hash consistently.
	price := new(big.Int).Set(at.Price)
	if price.Sign() < 0 {
		price.Add(price, twoTo256)
	}

	var priceBytes [32]byte
	price.FillBytes(priceBytes[:])

	var tsBytes [8]byte
	for i := 0; i < 8; i++ {
		tsBytes[7-i] = byte(at.Timestamp >> (8 * i))
	}

	hash := crypto.Keccak256(priceBytes[:], tsBytes[:], verifierID.Bytes())

	return common.BytesToHash(hash)
}

// Sign uses the specified private key to sign the attestation for the
// specified verifier.
func (at Attestation) Sign(verifierID common.Address, privateKey *ecdsa.PrivateKey) (SignedAttestation, error) {

	// Prepare the stamped digest for signing.
	data := stamp(at.Digest(verifierID))

	// Sign the stamped digest with the private key to produce a signature.
	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return SignedAttestation{}, err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(data, sig)
	if err != nil {
		return SignedAttestation{}, err
	}

	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), data, rs) {
		return SignedAttestation{}, errors.New("invalid signature produced")
	}

	signedAt := SignedAttestation{
		Attestation: at,
		Sig:         sig,
	}

	return signedAt, nil
}

// =============================================================================

// SignedAttestation is a signed version of the attestation carrying the
// 65 byte [R|S|V] signature.
type SignedAttestation struct {
	Attestation
	Sig hexutil.Bytes `json:"sig"`
}

// RecoverSigner extracts the address for the account that signed the
// specified digest.
func RecoverSigner(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes long", crypto.SignatureLength)
	}

	// Accept both the raw recovery id and the 27/28 convention some
	// signing libraries apply.
	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	if v != 0 && v != 1 {
		return common.Address{}, errors.New("invalid recovery id")
	}

	cpy := make([]byte, crypto.SignatureLength)
	copy(cpy, sig)
	cpy[crypto.RecoveryIDOffset] = v

	// The public key is extracted from the stamped digest and signature.
	// If the digest doesn't match what was signed, recovery yields the
	// wrong address, never an error.
	publicKey, err := crypto.SigToPub(stamp(digest), cpy)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}

// SignatureString returns the signature as a hex encoded string.
func (sat SignedAttestation) SignatureString() string {
	return hexutil.Encode(sat.Sig)
}

// String implements the fmt.Stringer interface for logging.
func (sat SignedAttestation) String() string {
	return fmt.Sprintf("%v:%d", sat.Price, sat.Timestamp)
}

// =============================================================================

// stamp wraps the digest with the standard signed message prefix before
// signing or recovery. Attestors and the verifier must apply the exact
// same wrapping or every signature fails verification.
func stamp(digest common.Hash) []byte {
	stamp := []byte("\x19Ethereum Signed Message:\n32")

	return crypto.Keccak256(stamp, digest.Bytes())
}
