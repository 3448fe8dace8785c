package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var url string

// sendCmd represents the send command.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a price attestation and submit it to the oracle service",
	Run: func(cmd *cobra.Command, args []string) {
		sat, err := signAttestation()
		if err != nil {
			log.Fatal(err)
		}

		data, err := json.Marshal(payload(sat))
		if err != nil {
			log.Fatal(err)
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/attestation/submit", url), "application/json", bytes.NewBuffer(data))
		if err != nil {
			log.Fatal(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(body))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the oracle service.")
	sendCmd.Flags().StringVarP(&verifierID, "verifier", "v", "", "Address of the verifier the attestation is bound to.")
	sendCmd.Flags().StringVarP(&price, "price", "r", "0", "Price in the feed's fixed point representation.")
	sendCmd.Flags().Uint64VarP(&timestamp, "timestamp", "t", 0, "Timestamp in seconds. Defaults to now.")
}
