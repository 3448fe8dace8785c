package cmd

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var priceURL string

// priceCmd represents the price command.
var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Query the latest attested price from the oracle service",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(fmt.Sprintf("%s/v1/price/attested", priceURL))
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
	rootCmd.AddCommand(priceCmd)
	priceCmd.Flags().StringVarP(&priceURL, "url", "u", "http://localhost:8080", "Url of the oracle service.")
}
