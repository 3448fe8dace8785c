package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ardanlabs/oracle/foundation/oracle/attest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	verifierID string
	price      string
	timestamp  uint64
)

// signCmd represents the sign command.
var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a price attestation and print it",
	Run: func(cmd *cobra.Command, args []string) {
		sat, err := signAttestation()
		if err != nil {
			log.Fatal(err)
		}

		data, err := json.MarshalIndent(payload(sat), "", "  ")
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(data))
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
	signCmd.Flags().StringVarP(&verifierID, "verifier", "v", "", "Address of the verifier the attestation is bound to.")
	signCmd.Flags().StringVarP(&price, "price", "r", "0", "Price in the feed's fixed point representation.")
	signCmd.Flags().Uint64VarP(&timestamp, "timestamp", "t", 0, "Timestamp in seconds. Defaults to now.")
}

// signAttestation builds and signs the attestation from the flags.
func signAttestation() (attest.SignedAttestation, error) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return attest.SignedAttestation{}, err
	}

	if !common.IsHexAddress(verifierID) {
		return attest.SignedAttestation{}, fmt.Errorf("verifier %q is not a valid address", verifierID)
	}

	p, ok := new(big.Int).SetString(price, 10)
	if !ok {
		return attest.SignedAttestation{}, fmt.Errorf("price %q is not a valid integer", price)
	}

	ts := timestamp
	if ts == 0 {
		ts = uint64(time.Now().UTC().Unix())
	}

	at, err := attest.New(p, ts)
	if err != nil {
		return attest.SignedAttestation{}, err
	}

	return at.Sign(common.HexToAddress(verifierID), privateKey)
}

// payload shapes the signed attestation for the submit endpoint.
func payload(sat attest.SignedAttestation) map[string]any {
	return map[string]any{
		"price":     sat.Price.String(),
		"timestamp": sat.Timestamp,
		"sig":       sat.SignatureString(),
	}
}
