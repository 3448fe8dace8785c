// Package seed maintains access to the seed file that establishes the
// verifier identity, the administrator, and the initial trusted signer.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Seed represents the seed file.
type Seed struct {
	Date            time.Time `json:"date"`
	VerifierID      string    `json:"verifier_id"`       // Identity attestation digests are bound to.
	Admin           string    `json:"admin"`             // The only account allowed to rotate the trusted signer.
	TrustedSigner   string    `json:"trusted_signer"`    // Account whose attestations are accepted at startup.
	FeedDecimals    uint8     `json:"feed_decimals"`     // Fixed point precision of the reference feed.
	FeedDescription string    `json:"feed_description"`  // Pair description for the reference feed.
}

// =============================================================================

// Load opens and consumes the seed file.
func Load(path string) (Seed, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}

	var seed Seed
	if err := json.Unmarshal(content, &seed); err != nil {
		return Seed{}, err
	}

	for name, value := range map[string]string{
		"verifier_id":    seed.VerifierID,
		"admin":          seed.Admin,
		"trusted_signer": seed.TrustedSigner,
	} {
		if !common.IsHexAddress(value) {
			return Seed{}, fmt.Errorf("seed field %s is not a valid address", name)
		}
	}

	return seed, nil
}
